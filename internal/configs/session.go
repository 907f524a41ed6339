package configs

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session holds a decrypted Config for the lifetime of one invocation.
// It replaces any process-wide decrypted state: callers pass the session
// to the operations that need secrets and Close it when done.
type Session struct {
	ID        string
	StartedAt time.Time

	mu     sync.Mutex
	cfg    *Config
	closed bool
}

// NewSession wraps cfg in a session with a fresh ID. The session takes
// ownership of cfg.
func NewSession(cfg *Config) *Session {
	return &Session{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		cfg:       cfg,
	}
}

// Config returns the decrypted config, or nil after Close.
func (s *Session) Config() *Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.cfg
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close drops the decrypted config. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.cfg != nil {
		s.cfg.clear()
		s.cfg = nil
	}
	s.closed = true
}
