package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rill/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the rill version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Colored())
	},
}
