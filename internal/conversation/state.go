// Package conversation implements the per-turn reply pipeline and the
// session state machine around it.
package conversation

import (
	"slices"
	"time"

	"github.com/antoniostano/zinger/internal/knowledge"
)

// Role identifies who authored a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation history.
type Turn struct {
	Role   Role      `json:"role"`
	Text   string    `json:"text"`
	Source Source    `json:"source,omitempty"`
	At     time.Time `json:"at"`
}

// Source tells where an assistant reply came from.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
	SourceApology   Source = "apology"
)

// Status is the controller state of a session.
type Status string

const (
	StatusAwaitingInput Status = "awaiting_input"
	StatusGenerating    Status = "generating"
	StatusTerminated    Status = "terminated"
)

// State is the whole of one conversation. It is a value: the controller
// returns an updated copy and never mutates the History it was given.
type State struct {
	History   []Turn          `json:"history"`
	Status    Status          `json:"status"`
	Knowledge *knowledge.Base `json:"-"`
}

func (s State) Terminated() bool { return s.Status == StatusTerminated }

// ConversationTurns counts user and assistant turns, ignoring system turns.
func (s State) ConversationTurns() int {
	n := 0
	for _, t := range s.History {
		if t.Role != RoleSystem {
			n++
		}
	}
	return n
}

// LastTurn returns the most recent turn, if any.
func (s State) LastTurn() (Turn, bool) {
	if len(s.History) == 0 {
		return Turn{}, false
	}
	return s.History[len(s.History)-1], true
}

// Clone returns a State whose History does not share memory with s.
func (s State) Clone() State {
	s.History = slices.Clone(s.History)
	return s
}

func (s State) withTurn(t Turn) State {
	next := s.Clone()
	next.History = append(next.History, t)
	return next
}
