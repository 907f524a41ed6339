// Package ui provides semantic text formatting for CLI output.
//
// This package defines formatters for different types of content (code,
// paths, errors, etc.) that render appropriately based on terminal
// capabilities. When colors are available, content is colorized. When
// NO_COLOR is set or the terminal doesn't support colors, text-based
// decorations (backticks, quotes) are used instead.
//
// # Semantic Formatters
//
//	ui.Code.Sprint("tosk config init")       // Commands and code
//	ui.Path.Sprint("~/.config/tosk")         // File paths
//	ui.Success.Sprint("✓")                   // Success indicators
//	ui.Error.Sprint("✗")                     // Error indicators
//	ui.Warning.Sprint("plain")               // Warnings
//	ui.Info.Sprint("→")                      // Informational hints
//	ui.Highlight.Sprint("owner/repo")        // User values
//	ui.Muted.Sprint("sha 3f2a1c")            // De-emphasized text
//
// Mark(ok) picks the success or error indicator for a per-file result.
//
// # Color Behavior
//
// Colors are disabled when:
//   - NO_COLOR environment variable is set (any value)
//   - Terminal doesn't support colors (TERM=dumb, not a TTY)
package ui
