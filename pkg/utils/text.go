// Package utils provides shared utilities for text and logging.
package utils

import "github.com/mattn/go-runewidth"

// Truncate returns s cut to at most maxWidth terminal cells, ending in "..."
// when anything was removed. Wide characters count as two cells.
// If maxWidth is 0 or negative, returns s unchanged.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 || runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// Width returns the number of terminal cells s occupies.
func Width(s string) int {
	return runewidth.StringWidth(s)
}

// PadRight pads s with spaces to width cells.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}
