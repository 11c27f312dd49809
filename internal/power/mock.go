package power

import "sync"

// MockInhibitor is a test double for Inhibitor.
type MockInhibitor struct {
	mu         sync.Mutex
	acquireErr error
	releaseErr error
	held       int
	acquires   int
	releases   int
}

func (m *MockInhibitor) Acquire(string) (Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquires++
	if m.acquireErr != nil {
		return nil, m.acquireErr
	}
	m.held++
	return mockLock{m: m}, nil
}

func (m *MockInhibitor) Close() error { return nil }

// Test helpers

func (m *MockInhibitor) SetAcquireError(err error) {
	m.mu.Lock()
	m.acquireErr = err
	m.mu.Unlock()
}

func (m *MockInhibitor) SetReleaseError(err error) {
	m.mu.Lock()
	m.releaseErr = err
	m.mu.Unlock()
}

// Held returns the number of outstanding locks.
func (m *MockInhibitor) Held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held
}

func (m *MockInhibitor) Acquires() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquires
}

func (m *MockInhibitor) Releases() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releases
}

type mockLock struct {
	m *MockInhibitor
}

func (l mockLock) Release() error {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	l.m.releases++
	l.m.held--
	return l.m.releaseErr
}

var _ Inhibitor = (*MockInhibitor)(nil)
