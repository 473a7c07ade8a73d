package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"rill/internal/source"
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	infoColor = color.New(color.FgCyan)
	lineColor = color.New(color.FgHiBlack)
)

func severityColor(s Severity) *color.Color {
	switch s {
	case SevError:
		return errColor
	case SevWarning:
		return warnColor
	default:
		return infoColor
	}
}

// Render writes a human-readable report for every diagnostic in the bag,
// resolving spans against fs. When colorize is false all styling is
// suppressed.
func Render(w io.Writer, fs *source.FileSet, b *Bag, colorize bool) {
	old := color.NoColor
	color.NoColor = !colorize
	defer func() { color.NoColor = old }()

	for _, d := range b.Items() {
		renderOne(w, fs, d)
	}
}

func renderOne(w io.Writer, fs *source.FileSet, d Diagnostic) {
	sev := severityColor(d.Severity)
	fmt.Fprintf(w, "%s: %s\n", sev.Sprint(d.Severity), d.Message)

	file, ok := fs.FileFor(d.Primary)
	if !ok {
		return
	}
	line, lineSpan, lineNo := lineAround(file, d.Primary)
	fmt.Fprintf(w, "  %s %s:%d\n", lineColor.Sprint("-->"), file.Name, lineNo)
	fmt.Fprintf(w, "  %s %s\n", lineColor.Sprint("|"), line)

	// Underline column math uses display width, not byte offsets, so
	// wide runes do not skew the caret position.
	prefix := line[:min(int(d.Primary.Start-lineSpan.Start), len(line))]
	pad := runewidth.StringWidth(prefix)
	width := runewidth.StringWidth(spanText(line, lineSpan, d.Primary))
	if width == 0 {
		width = 1
	}
	fmt.Fprintf(w, "  %s %s%s\n",
		lineColor.Sprint("|"),
		strings.Repeat(" ", pad),
		sev.Sprint(strings.Repeat("^", width)))

	for _, n := range d.Notes {
		fmt.Fprintf(w, "  %s %s\n", lineColor.Sprint("="), n.Msg)
	}
}

// lineAround extracts the source line containing the span's start.
func lineAround(file *source.File, sp source.Span) (string, source.Span, int) {
	rel := int(sp.Start - file.Span.Start)
	if rel > len(file.Content) {
		rel = len(file.Content)
	}
	start := rel
	for start > 0 && file.Content[start-1] != '\n' {
		start--
	}
	end := rel
	for end < len(file.Content) && file.Content[end] != '\n' {
		end++
	}
	lineNo := 1 + strings.Count(string(file.Content[:start]), "\n")
	lineSpan := source.New(file.Span.Start+uint32(start), file.Span.Start+uint32(end))
	return string(file.Content[start:end]), lineSpan, lineNo
}

func spanText(line string, lineSpan, sp source.Span) string {
	from := int(sp.Start - lineSpan.Start)
	to := int(sp.End - lineSpan.Start)
	if from > len(line) {
		from = len(line)
	}
	if to > len(line) {
		to = len(line)
	}
	if to < from {
		to = from
	}
	return line[from:to]
}
