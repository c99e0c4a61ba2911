// Package strings holds small text helpers shared by the CLI output code.
package strings

import (
	"strings"
)

// DefaultCellMaxLen is the widest value printed in a table cell.
const DefaultCellMaxLen = 100

// minTruncateLen leaves room for one rune plus the ellipsis.
const minTruncateLen = 4

// SingleLine collapses all whitespace runs in s to single spaces and cuts the
// result to at most maxLen runes, ending in "..." when cut. maxLen below 4 is
// treated as 4.
func SingleLine(s string, maxLen int) string {
	if maxLen < minTruncateLen {
		maxLen = minTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
