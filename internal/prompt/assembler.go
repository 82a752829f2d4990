// Package prompt builds the few-shot chat prompt sent to the generator.
package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/antoniostano/zinger/internal/generator"
	"github.com/antoniostano/zinger/internal/knowledge"
)

//go:embed persona.md
var defaultPersona string

// DefaultExampleCount bounds how many FAQ pairs are rendered as examples.
const DefaultExampleCount = 5

// DefaultPersona returns the built-in persona block.
func DefaultPersona() string {
	return strings.TrimSpace(defaultPersona)
}

// LoadPersona reads a persona override; an empty path selects the built-in block.
func LoadPersona(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPersona(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read persona: %w", err)
	}
	persona := strings.TrimSpace(string(data))
	if persona == "" {
		return "", errors.New("persona file is empty")
	}
	return persona, nil
}

// Assembler holds the persona block and the example pairs. Both are fixed at
// construction and never change afterwards.
type Assembler struct {
	persona  string
	examples []knowledge.Entry
}

func NewAssembler(persona string, examples []knowledge.Entry) *Assembler {
	ex := make([]knowledge.Entry, len(examples))
	copy(ex, examples)
	return &Assembler{persona: persona, examples: ex}
}

// FromBase takes the first n entries of the knowledge base as examples.
func FromBase(persona string, base *knowledge.Base, n int) *Assembler {
	return NewAssembler(persona, base.Examples(n))
}

func (a *Assembler) Persona() string { return a.persona }

func (a *Assembler) ExampleCount() int { return len(a.examples) }

// Assemble returns persona, examples as alternating user/assistant turns, then
// the live user message.
func (a *Assembler) Assemble(userText string) generator.Request {
	msgs := make([]generator.Message, 0, 2+2*len(a.examples))
	msgs = append(msgs, generator.Message{Role: generator.RoleSystem, Content: a.persona})
	for _, ex := range a.examples {
		msgs = append(msgs,
			generator.Message{Role: generator.RoleUser, Content: ex.Question},
			generator.Message{Role: generator.RoleAssistant, Content: ex.Answer},
		)
	}
	msgs = append(msgs, generator.Message{Role: generator.RoleUser, Content: userText})
	return generator.Request{Messages: msgs}
}
