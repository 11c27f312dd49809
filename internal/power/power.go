// Package power keeps the machine awake while audio is playing.
package power

import (
	"sync"

	"github.com/rs/zerolog"
)

const reason = "Playing audio"

// Lock is a held wake lock.
type Lock interface {
	Release() error
}

// Inhibitor is the platform wake-lock capability.
type Inhibitor interface {
	Acquire(why string) (Lock, error)
	Close() error
}

// Noop is the inhibitor used when the platform has none.
type Noop struct{}

func (Noop) Acquire(string) (Lock, error) { return noopLock{}, nil }
func (Noop) Close() error                 { return nil }

type noopLock struct{}

func (noopLock) Release() error { return nil }

// Manager holds at most one wake lock. Failures are logged, never returned:
// power management must not interfere with playback.
type Manager struct {
	inh Inhibitor
	log zerolog.Logger

	mu   sync.Mutex
	lock Lock
}

// NewManager wraps inh. A nil inhibitor behaves like Noop.
func NewManager(inh Inhibitor, log zerolog.Logger) *Manager {
	if inh == nil {
		inh = Noop{}
	}
	return &Manager{inh: inh, log: log.With().Str("component", "power").Logger()}
}

// Acquire takes the wake lock unless it is already held.
func (m *Manager) Acquire() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lock != nil {
		return
	}
	lock, err := m.inh.Acquire(reason)
	if err != nil {
		m.log.Warn().Err(err).Msg("acquire wake lock")
		return
	}
	m.lock = lock
	m.log.Debug().Msg("wake lock acquired")
}

// Release drops the wake lock if held.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked()
}

// Held reports whether a wake lock is currently held.
func (m *Manager) Held() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lock != nil
}

// Close releases the lock and the inhibitor.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked()
	return m.inh.Close()
}

func (m *Manager) releaseLocked() {
	if m.lock == nil {
		return
	}
	if err := m.lock.Release(); err != nil {
		m.log.Warn().Err(err).Msg("release wake lock")
	}
	m.lock = nil
	m.log.Debug().Msg("wake lock released")
}
