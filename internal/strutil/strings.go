package strutil

import (
	"strings"
	"unicode"
)

// RemoveExtraSpaces collapses every whitespace run into a single space and trims the ends.
// For example RemoveExtraSpaces("hello \n world  ") return "hello world"
func RemoveExtraSpaces(s string) string {
	idx := 0

	return strings.Trim(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			idx++
			if idx > 1 {
				return -1
			}

			return ' '
		} else if idx > 0 {
			idx = 0
		}

		return r
	}, s), " ")
}
