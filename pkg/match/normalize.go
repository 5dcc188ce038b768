package match

import (
	"strings"
	"unicode"
)

// Normalize produces the comparison-safe form of a person's name: lowercased,
// alphabetic script characters only. Depositor names frequently carry an
// appended cohort/ID suffix (e.g. 김민준23) and arbitrary spacing; neither
// counts as part of the name.
func Normalize(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
