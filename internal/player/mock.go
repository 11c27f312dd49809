// internal/player/mock.go
package player

import (
	"context"
	"sync"
	"time"

	"github.com/llehouerou/wavestream/internal/playlist"
)

// MockOpener is a test double for Opener. It records every output it opens.
type MockOpener struct {
	mu        sync.Mutex
	outputs   []*MockOutput
	openErr   error
	playErr   error
	blockPlay bool
}

// NewMockOpener creates a new mock opener for testing.
func NewMockOpener() *MockOpener {
	return &MockOpener{}
}

func (m *MockOpener) Open(track playlist.Track, l Listener) (Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return nil, m.openErr
	}
	out := &MockOutput{
		track:   track,
		events:  l,
		playErr: m.playErr,
		volume:  1,
	}
	if m.blockPlay {
		out.block = make(chan struct{})
	}
	m.outputs = append(m.outputs, out)
	return out, nil
}

// Test helpers

func (m *MockOpener) SetOpenError(err error) {
	m.mu.Lock()
	m.openErr = err
	m.mu.Unlock()
}

// SetPlayError makes outputs opened afterwards fail Play with err.
func (m *MockOpener) SetPlayError(err error) {
	m.mu.Lock()
	m.playErr = err
	m.mu.Unlock()
}

// SetBlockPlay makes outputs opened afterwards block in Play until
// Unblock, Close or context cancellation.
func (m *MockOpener) SetBlockPlay(block bool) {
	m.mu.Lock()
	m.blockPlay = block
	m.mu.Unlock()
}

func (m *MockOpener) Outputs() []*MockOutput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockOutput(nil), m.outputs...)
}

// Last returns the most recently opened output, or nil.
func (m *MockOpener) Last() *MockOutput {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.outputs) == 0 {
		return nil
	}
	return m.outputs[len(m.outputs)-1]
}

// MockOutput is a test double for Output.
type MockOutput struct {
	mu         sync.Mutex
	track      playlist.Track
	events     Listener
	state      State
	position   time.Duration
	volume     float64
	playErr    error
	block      chan struct{}
	closed     bool
	closeCh    chan struct{}
	playCalls  int
	pauseCalls int
	seekCalls  []time.Duration
}

func (m *MockOutput) Play(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.playCalls++
	block := m.block
	if m.closeCh == nil {
		m.closeCh = make(chan struct{})
	}
	closeCh := m.closeCh
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-closeCh:
			return ErrAborted
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrAborted
	}
	if m.playErr != nil {
		return m.playErr
	}
	m.state = Playing
	return nil
}

func (m *MockOutput) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseCalls++
	if m.state.CanPause() {
		m.state = Paused
	}
}

func (m *MockOutput) Seek(to time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekCalls = append(m.seekCalls, to)
	m.position = to
}

func (m *MockOutput) SetVolume(level float64) {
	m.mu.Lock()
	m.volume = level
	m.mu.Unlock()
}

func (m *MockOutput) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *MockOutput) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.state = Stopped
	if m.closeCh == nil {
		m.closeCh = make(chan struct{})
	}
	close(m.closeCh)
	return nil
}

// Test helpers

func (m *MockOutput) Track() playlist.Track { return m.track }

// Unblock releases a blocked Play.
func (m *MockOutput) Unblock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.block != nil {
		close(m.block)
		m.block = nil
	}
}

func (m *MockOutput) SetPlayError(err error) {
	m.mu.Lock()
	m.playErr = err
	m.mu.Unlock()
}

func (m *MockOutput) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *MockOutput) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockOutput) PlayCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playCalls
}

func (m *MockOutput) PauseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauseCalls
}

func (m *MockOutput) SeekCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seekCalls...)
}

func (m *MockOutput) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// SetPosition moves the reported position without emitting a signal.
func (m *MockOutput) SetPosition(d time.Duration) {
	m.mu.Lock()
	m.position = d
	m.mu.Unlock()
}

// EmitTime simulates a position update.
func (m *MockOutput) EmitTime(t time.Duration) {
	m.SetPosition(t)
	m.events.TimeUpdated(t)
}

func (m *MockOutput) EmitMetadata(d time.Duration) { m.events.MetadataLoaded(d) }

func (m *MockOutput) EmitBuffered(end time.Duration) { m.events.BufferedUpdated(end) }

func (m *MockOutput) EmitBuffering(b bool) { m.events.BufferingChanged(b) }

// EmitEnded simulates the track finishing. Signals from a detached output
// are dropped like real ones.
func (m *MockOutput) EmitEnded() {
	m.mu.Lock()
	m.state = Stopped
	m.mu.Unlock()
	m.events.Ended()
}

// Verify mocks implement the interfaces at compile time.
var (
	_ Opener = (*MockOpener)(nil)
	_ Output = (*MockOutput)(nil)
)
