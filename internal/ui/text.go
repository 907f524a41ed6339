package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Formatter renders one kind of CLI text. With colour it paints the text;
// without, it wraps it in plain-text markers instead.
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

func newFormatter(attr color.Attribute, wrap ...string) Formatter {
	f := Formatter{color: color.New(attr)}
	if len(wrap) == 2 {
		f.prefix, f.suffix = wrap[0], wrap[1]
	}
	return f
}

// Sprint formats a like fmt.Sprint.
func (f Formatter) Sprint(a ...interface{}) string {
	return f.render(fmt.Sprint(a...))
}

// Sprintf formats like fmt.Sprintf.
func (f Formatter) Sprintf(format string, a ...interface{}) string {
	return f.render(fmt.Sprintf(format, a...))
}

func (f Formatter) render(text string) string {
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// EnsureNewline appends a newline to s unless it already ends with one.
func EnsureNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}

// Mark returns a check mark for ok and a cross otherwise.
func Mark(ok bool) string {
	if ok {
		return Success.Sprint("✓")
	}
	return Error.Sprint("✗")
}

// noColor honours NO_COLOR (https://no-color.org/) and fatih/color's own
// terminal detection.
func noColor() bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return true
	}
	return color.NoColor
}

var (
	// Code is for commands the user can run: `tosk backup push`.
	Code = newFormatter(color.FgYellow, "`", "`")
	// Path is for files and directories.
	Path = newFormatter(color.FgYellow)
	// Flag is for flags such as --plain.
	Flag = newFormatter(color.FgYellow)

	Success = newFormatter(color.FgGreen)
	Error   = newFormatter(color.FgRed)
	Warning = newFormatter(color.FgYellow)
	Info    = newFormatter(color.FgCyan)

	// Highlight is for user values such as 'owner/repo'.
	Highlight = newFormatter(color.FgCyan, "'", "'")
	// Muted is for secondary detail: (sha 3f2a1c).
	Muted = newFormatter(color.FgHiBlack, "(", ")")
)
