package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/antoniostano/zinger/internal/conversation"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrEnded    = errors.New("session ended")
	ErrBusy     = errors.New("session is already generating a reply")
)

// Session pairs a conversation with its registry bookkeeping.
type Session struct {
	ID             string             `json:"session_id"`
	UserID         string             `json:"user_id"`
	Status         Status             `json:"status"`
	Conversation   conversation.State `json:"conversation"`
	TurnCount      int                `json:"turn_count"`
	StartedAt      time.Time          `json:"started_at"`
	LastActivityAt time.Time          `json:"last_activity_at"`
}

// Transcript returns the user and assistant turns, without the persona turn.
func (s *Session) Transcript() []conversation.Turn {
	out := make([]conversation.Turn, 0, len(s.Conversation.History))
	for _, t := range s.Conversation.History {
		if t.Role == conversation.RoleSystem {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Manager keeps the live sessions. Each session holds its own conversation
// state; the mutex only guards the map and the per-session bookkeeping.
type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*Session
	inactivityTimeout time.Duration
	onExpire          func(*Session)
}

func NewManager(inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 30 * time.Minute
	}
	return &Manager{
		sessions:          make(map[string]*Session),
		inactivityTimeout: inactivityTimeout,
	}
}

func (m *Manager) InactivityTimeout() time.Duration { return m.inactivityTimeout }

func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

func (m *Manager) Create(userID string, state conversation.State) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:             uuid.NewString(),
		UserID:         userID,
		Status:         StatusActive,
		Conversation:   state.Clone(),
		StartedAt:      now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return clone(s)
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

func (m *Manager) Touch(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.LastActivityAt = time.Now().UTC()
	return nil
}

// BeginTurn claims the session for one turn and returns the conversation to
// run it against. A second claim before CompleteTurn or AbortTurn fails with
// ErrBusy. A terminated conversation is not claimed.
func (m *Manager) BeginTurn(sessionID string) (conversation.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.activeLocked(sessionID)
	if err != nil {
		return conversation.State{}, err
	}
	switch s.Conversation.Status {
	case conversation.StatusGenerating:
		return conversation.State{}, ErrBusy
	case conversation.StatusTerminated:
		return conversation.State{}, conversation.ErrTerminated
	}
	state := s.Conversation.Clone()
	s.Conversation.Status = conversation.StatusGenerating
	s.LastActivityAt = time.Now().UTC()
	return state, nil
}

// CompleteTurn stores the state produced by the turn claimed with BeginTurn.
func (m *Manager) CompleteTurn(sessionID string, state conversation.State) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	if s.Status != StatusActive {
		return nil, ErrEnded
	}
	s.Conversation = state.Clone()
	s.TurnCount++
	s.LastActivityAt = time.Now().UTC()
	return clone(s), nil
}

// AbortTurn releases a claimed turn without changing the conversation.
func (m *Manager) AbortTurn(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.Conversation.Status != conversation.StatusGenerating {
		return
	}
	s.Conversation.Status = conversation.StatusAwaitingInput
}

// Reset replaces the conversation with state. It is refused while a turn is
// in flight.
func (m *Manager) Reset(sessionID string, state conversation.State) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.activeLocked(sessionID)
	if err != nil {
		return nil, err
	}
	if s.Conversation.Status == conversation.StatusGenerating {
		return nil, ErrBusy
	}
	s.Conversation = state.Clone()
	s.TurnCount = 0
	s.LastActivityAt = time.Now().UTC()
	return clone(s), nil
}

func (m *Manager) End(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	s.Status = StatusEnded
	s.LastActivityAt = time.Now().UTC()
	return clone(s), nil
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.Status == StatusActive {
			count++
		}
	}
	return count
}

func (m *Manager) activeLocked(sessionID string) (*Session, error) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	if s.Status != StatusActive {
		return nil, ErrEnded
	}
	return s, nil
}

// expireInactive ends idle sessions and drops sessions that have been ended
// for a full timeout period.
func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		idle := now.Sub(s.LastActivityAt)
		if s.Status == StatusEnded {
			if idle >= m.inactivityTimeout {
				delete(m.sessions, id)
			}
			continue
		}
		if idle < m.inactivityTimeout || s.Conversation.Status == conversation.StatusGenerating {
			continue
		}
		s.Status = StatusEnded
		s.LastActivityAt = now
		expired = append(expired, clone(s))
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	c.Conversation = s.Conversation.Clone()
	return &c
}
