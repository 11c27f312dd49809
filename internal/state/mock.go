// internal/state/mock.go
package state

import "sync"

// Mock is a test double for Manager.
type Mock struct {
	mu     sync.Mutex
	prefs  *Preferences
	saves  []Preferences
	getErr error
	closed bool
}

// NewMock creates a new mock state manager for testing.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) GetPreferences() (Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return Preferences{}, m.getErr
	}
	if m.prefs == nil {
		return DefaultPreferences(), nil
	}
	return *m.prefs, nil
}

func (m *Mock) SavePreferences(p Preferences) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = &p
	m.saves = append(m.saves, p)
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Test helpers

func (m *Mock) SetPreferences(p Preferences) {
	m.mu.Lock()
	m.prefs = &p
	m.mu.Unlock()
}

func (m *Mock) SetGetError(err error) {
	m.mu.Lock()
	m.getErr = err
	m.mu.Unlock()
}

// Saves returns every preferences value saved so far.
func (m *Mock) Saves() []Preferences {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Preferences(nil), m.saves...)
}

func (m *Mock) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
