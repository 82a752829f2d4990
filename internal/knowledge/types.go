package knowledge

import (
	"errors"
	"fmt"
	"strings"
)

// Entry is one scripted question/answer pair.
type Entry struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// LoadError reports a knowledge base that could not be read or is malformed.
// The bot cannot operate without its scripted answers, so callers treat it as fatal.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load knowledge base %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

var (
	ErrEmpty          = errors.New("no faq entries")
	ErrMissingField   = errors.New("faq entry needs a question and an answer")
	ErrUnknownFormat  = errors.New("unsupported knowledge base format")
	ErrMalformedShape = errors.New("expected a list of faq entries")
)

// Base is the ordered, read-only set of FAQ entries.
type Base struct {
	entries []Entry
}

// NewBase validates entries and copies them into a Base.
func NewBase(entries []Entry) (*Base, error) {
	if len(entries) == 0 {
		return nil, ErrEmpty
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.Question) == "" || strings.TrimSpace(e.Answer) == "" {
			return nil, fmt.Errorf("entry %d: %w", i, ErrMissingField)
		}
		out[i] = e
	}
	return &Base{entries: out}, nil
}

func (b *Base) Len() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

// Entries returns a copy in stored order.
func (b *Base) Entries() []Entry {
	if b == nil {
		return nil
	}
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Examples returns the first n entries (fewer when the base is smaller).
func (b *Base) Examples(n int) []Entry {
	if b == nil || n <= 0 {
		return nil
	}
	if n > len(b.entries) {
		n = len(b.entries)
	}
	out := make([]Entry, n)
	copy(out, b.entries[:n])
	return out
}
