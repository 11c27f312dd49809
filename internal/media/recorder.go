package media

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// Recorder is an in-memory Session for tests and headless runs.
type Recorder struct {
	mu            sync.Mutex
	metadata      []Metadata
	handlers      Handlers
	registrations int
	statuses      []PlaybackStatus
	positions     []PositionState
	modes         Modes
	closed        bool
}

func (r *Recorder) SetMetadata(m Metadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metadata = append(r.metadata, m)
}

func (r *Recorder) SetActionHandlers(h Handlers) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = h
	if h != nil {
		r.registrations++
	}
}

func (r *Recorder) SetPlaybackStatus(s PlaybackStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *Recorder) SetPositionState(p PositionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions = append(r.positions, p)
}

func (r *Recorder) SetModes(m Modes) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modes = m
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Trigger invokes the registered handler for action, as the OS would.
func (r *Recorder) Trigger(action Action, details ActionDetails) error {
	r.mu.Lock()
	h, ok := r.handlers[action]
	r.mu.Unlock()
	if !ok || h == nil {
		return errors.Newf("no handler for %s", action)
	}
	h(details)
	return nil
}

// Metadata returns the last published metadata.
func (r *Recorder) Metadata() Metadata {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.metadata) == 0 {
		return Metadata{}
	}
	return r.metadata[len(r.metadata)-1]
}

// Registrations counts non-nil handler registrations.
func (r *Recorder) Registrations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registrations
}

// Status returns the last published status.
func (r *Recorder) Status() PlaybackStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return StatusNone
	}
	return r.statuses[len(r.statuses)-1]
}

func (r *Recorder) Positions() []PositionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PositionState(nil), r.positions...)
}

func (r *Recorder) Modes() Modes {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.modes
}

func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

var _ Session = (*Recorder)(nil)
