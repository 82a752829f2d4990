// Package policy masks personal data before user text reaches the logs.
package policy

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

type rule struct {
	pattern *regexp.Regexp
	mask    string
}

// Cards run before phones so long digit runs are not reported as phone numbers.
var rules = []rule{
	{regexp.MustCompile(`[\p{L}0-9._%+\-]+@[\p{L}0-9.\-]+\.\p{L}{2,}`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`), "[REDACTED_CARD]"},
	{regexp.MustCompile(`\+?[0-9][0-9\-() /]{7,}[0-9]`), "[REDACTED_PHONE]"},
}

// RedactPII masks email addresses, card numbers and phone numbers.
func RedactPII(input string) (string, bool) {
	out := input
	for _, r := range rules {
		out = r.pattern.ReplaceAllString(out, r.mask)
	}
	return out, out != input
}

// ForLog redacts and clips text to at most maxRunes runes.
func ForLog(input string, maxRunes int) string {
	out, _ := RedactPII(strings.TrimSpace(input))
	if maxRunes <= 0 || utf8.RuneCountInString(out) <= maxRunes {
		return out
	}
	runes := []rune(out)
	return string(runes[:maxRunes]) + "…"
}
