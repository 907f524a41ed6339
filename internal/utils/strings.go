package utils

import (
	"strings"

	"github.com/PolarWolf314/tosk/internal/ui"
)

// FormatPaths formats a slice of paths into a readable string.
func FormatPaths(paths []string) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, path := range paths {
		b.WriteString("    - ")
		b.WriteString(ui.Path.Sprint(path))
		b.WriteString("\n")
	}
	return b.String()
}

// IsSafeRelativePath reports whether name can be used as a slash-separated
// path below a backup directory: non-empty, relative, and free of ".."
// segments, backslashes and NUL bytes. Spaces and other punctuation are allowed.
func IsSafeRelativePath(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	if strings.HasPrefix(name, "/") || strings.ContainsAny(name, "\\\x00") {
		return false
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return false
		}
	}
	return true
}
