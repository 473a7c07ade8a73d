package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"rill/internal/engine"
	"rill/internal/pipeline"
	"rill/internal/source"
	"rill/internal/value"
)

var runCmd = &cobra.Command{
	Use:   "run <module> <command> [args...]",
	Short: "Link a module and invoke one of its commands",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		es := newEngine()

		if _, err := loadModule(es, args[0]); err != nil {
			reportLoadError(es, err)
			return err
		}

		declID, found := es.FindDecl(args[1])
		if !found {
			return fmt.Errorf("command %q not found after linking %s", args[1], args[0])
		}
		decl := es.GetDecl(declID)

		call := &engine.Call{Decl: declID}
		for _, arg := range args[2:] {
			call.Positional = append(call.Positional, argExpression(arg))
		}

		stack := engine.NewStack()
		out, err := decl.Run(es, stack, call, pipeline.Empty())
		if err != nil {
			return err
		}
		if v := out.IntoValue(call.Head); !v.IsNothing() {
			fmt.Println(v)
		}
		return nil
	},
}

// argExpression turns a CLI argument into a literal: ints stay ints,
// everything else is a string.
func argExpression(arg string) *engine.Expression {
	var v value.Value
	if n, err := strconv.ParseInt(arg, 10, 64); err == nil {
		v = value.Int(n, source.Unknown())
	} else {
		v = value.String(arg, source.Unknown())
	}
	return &engine.Expression{Expr: &engine.ExprLiteral{Val: v}}
}
