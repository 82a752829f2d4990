package knowledge

import "strings"

// Match returns the first entry whose question contains the given question,
// compared case-insensitively and scanned in stored order.
//
// The direction is literal: the user's text must be a substring of the FAQ
// question, so long user messages rarely match while very short ones match
// the first entry that contains them.
func (b *Base) Match(question string) (Entry, bool) {
	if b == nil {
		return Entry{}, false
	}
	q := strings.ToLower(question)
	for _, e := range b.entries {
		if strings.Contains(strings.ToLower(e.Question), q) {
			return e, true
		}
	}
	return Entry{}, false
}
