package session

import (
	"context"
	"errors"
	"sync"
)

// ErrEmptyCode rejects starting a session without a code.
var ErrEmptyCode = errors.New("session code required")

// Manager holds the single active attendance code. At most one session is
// active at a time; starting a new one overwrites the previous code.
type Manager interface {
	// Start activates code, replacing any prior session.
	Start(ctx context.Context, code string) error
	// Stop clears the active session. Idempotent.
	Stop(ctx context.Context) error
	// Active returns the current code and whether a session is active.
	Active(ctx context.Context) (string, bool, error)
}

// Memory keeps the active code in process memory behind a single lock.
// State is lost on restart: a fresh process always starts with no session.
type Memory struct {
	mu   sync.RWMutex
	code string
}

// NewMemory returns a manager with no active session.
func NewMemory() *Memory {
	return &Memory{}
}

// Start activates the given code.
func (m *Memory) Start(_ context.Context, code string) error {
	if code == "" {
		return ErrEmptyCode
	}
	m.mu.Lock()
	m.code = code
	m.mu.Unlock()
	return nil
}

// Stop clears the active code.
func (m *Memory) Stop(_ context.Context) error {
	m.mu.Lock()
	m.code = ""
	m.mu.Unlock()
	return nil
}

// Active reports the current code.
func (m *Memory) Active(_ context.Context) (string, bool, error) {
	m.mu.RLock()
	code := m.code
	m.mu.RUnlock()
	return code, code != "", nil
}
