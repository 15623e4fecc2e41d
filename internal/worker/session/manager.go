// Package session provides login session lifecycle management for idea-tracker.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeout is how long a session stays valid without activity.
	DefaultTimeout = 24 * time.Hour

	// TokenBytes is the number of random bytes in a session token.
	TokenBytes = 32
)

// ErrEntropyUnavailable is returned when no random token can be generated.
var ErrEntropyUnavailable = errors.New("session: entropy source unavailable")

// Manager holds the in-process table of live session tokens.
// Tokens are lost when the process exits.
type Manager struct {
	sessions map[string]time.Time
	mu       sync.Mutex

	timeout time.Duration
	now     func() time.Time
	entropy io.Reader

	onCreated   func(token string)
	onDestroyed func(token string)
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout sets the inactivity timeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithEntropy replaces the random source used for tokens.
func WithEntropy(r io.Reader) Option {
	return func(m *Manager) {
		if r != nil {
			m.entropy = r
		}
	}
}

// NewManager creates a new session manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]time.Time),
		timeout:  DefaultTimeout,
		now:      time.Now,
		entropy:  rand.Reader,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetOnSessionCreated sets the callback for when a session is created.
func (m *Manager) SetOnSessionCreated(fn func(token string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCreated = fn
}

// SetOnSessionDestroyed sets the callback for when a session is removed, explicitly or by expiry.
func (m *Manager) SetOnSessionDestroyed(fn func(token string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDestroyed = fn
}

// Create issues a new session token.
func (m *Manager) Create() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := io.ReadFull(m.entropy, buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}
	token := hex.EncodeToString(buf)

	m.mu.Lock()
	// Overwriting an identical token is harmless.
	m.sessions[token] = m.now()
	count := len(m.sessions)
	callback := m.onCreated
	m.mu.Unlock()

	log.Debug().Int("activeSessions", count).Msg("Session created")

	if callback != nil {
		callback(token)
	}
	return token, nil
}

// Validate reports whether token is live. A valid token has its timeout refreshed;
// an expired one is removed.
func (m *Manager) Validate(token string) bool {
	if token == "" {
		return false
	}

	m.mu.Lock()
	last, ok := m.sessions[token]
	if !ok {
		m.mu.Unlock()
		return false
	}

	now := m.now()
	if now.Sub(last) > m.timeout {
		delete(m.sessions, token)
		callback := m.onDestroyed
		m.mu.Unlock()

		log.Debug().Dur("idle", now.Sub(last)).Msg("Session expired")
		if callback != nil {
			callback(token)
		}
		return false
	}

	m.sessions[token] = now
	m.mu.Unlock()
	return true
}

// Destroy removes token. Unknown tokens are ignored.
func (m *Manager) Destroy(token string) {
	m.mu.Lock()
	_, ok := m.sessions[token]
	delete(m.sessions, token)
	callback := m.onDestroyed
	m.mu.Unlock()

	if ok && callback != nil {
		callback(token)
	}
}

// Count returns the number of tokens in the table, including expired ones not yet purged.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Timeout returns the inactivity timeout.
func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

// Close drops every session.
func (m *Manager) Close() {
	m.mu.Lock()
	count := len(m.sessions)
	m.sessions = make(map[string]time.Time)
	m.mu.Unlock()

	if count > 0 {
		log.Info().Int("sessions", count).Msg("Session table cleared")
	}
}
