// Package version carries the build version string.
package version

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Version is the semantic version, overridable at link time.
var Version = "0.1.0"

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Colored renders the version with per-component coloring for terminal
// output. Falls back to the plain string when the version is not a
// three-part semver.
func Colored() string {
	parts := strings.SplitN(Version, ".", 3)
	if len(parts) != 3 {
		return Version
	}
	return fmt.Sprintf("%s.%s.%s",
		majorColor.Sprint(parts[0]),
		minorColor.Sprint(parts[1]),
		patchColor.Sprint(parts[2]))
}
