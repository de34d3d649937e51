// Package util holds the text fitting helpers shared by the CLI tables and
// the recorder view.
package util

import (
	"path/filepath"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const ellipsis = "..."

// TruncateString cuts s to maxLen runes, ending in "..." when cut.
// Escape codes and wide characters are not accounted for.
func TruncateString(s string, maxLen int) string {
	if maxLen <= len(ellipsis) {
		return ellipsis
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-len(ellipsis)]) + ellipsis
}

// TruncateANSI cuts styled text to maxWidth terminal columns, keeping its
// escape sequences intact.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= len(ellipsis) {
		return ellipsis
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, ellipsis)
}

// TruncatePath fits a file path into maxWidth runes by dropping the start of
// its directory, so ".../screenreel/recording_20240501_093015.mp4" keeps the
// part that tells recordings apart. A file name that does not fit on its own
// is cut with TruncateString. A maxWidth of zero or less disables fitting.
func TruncatePath(path string, maxWidth int) string {
	if maxWidth <= 0 || utf8.RuneCountInString(path) <= maxWidth {
		return path
	}

	sep := string(filepath.Separator)
	base := filepath.Base(path)
	fixed := len(ellipsis) + len(sep) + utf8.RuneCountInString(base)
	if fixed > maxWidth {
		return TruncateString(base, maxWidth)
	}

	dir := []rune(filepath.Dir(path))
	keep := min(maxWidth-fixed, len(dir))
	return ellipsis + string(dir[len(dir)-keep:]) + sep + base
}
