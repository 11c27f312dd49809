package playback

import (
	"time"

	"github.com/llehouerou/wavestream/internal/playlist"
	"github.com/llehouerou/wavestream/internal/state"
)

// StateChange is emitted when playback state changes.
type StateChange struct {
	Previous State
	Current  State
}

// TrackChange is emitted when a different track is bound.
//
// Emitted by:
//   - Initialize, PlayAt, Next, Previous: when the bound track changes
//   - the end of a track, when playback moves on
//   - RemoveFromQueue: when the current track is removed
//   - ClearQueue: with a nil Current
//
// NOT emitted when the same track restarts (previous within the restart
// threshold, repeat) or on pause and resume.
//
// The session handles track-related side effects (notifications, now
// playing) in response to this event.
type TrackChange struct {
	Previous      *playlist.Track
	Current       *playlist.Track
	PreviousIndex int
	Index         int
}

// QueueChange is emitted when the queue contents or order change.
type QueueChange struct {
	Tracks []playlist.Track
	Index  int
}

// ModeChange is emitted when a preference flag changes.
type ModeChange struct {
	Repeat        bool
	Shuffle       bool
	AutoplayOnEnd bool
	PlayerMode    state.PlayerMode
}

// PositionChange is emitted on position updates and seeks.
type PositionChange struct {
	Position time.Duration
	Duration time.Duration
}

// BufferChange is emitted when the loaded range or the buffering flag
// changes.
type BufferChange struct {
	Buffered  time.Duration
	Buffering bool
}

// VolumeChange is emitted when the volume changes.
type VolumeChange struct {
	Volume float64
}

// ErrorEvent is emitted when playback of a track fails. The controller has
// already settled in a paused state when it is sent.
type ErrorEvent struct {
	Operation string // e.g., "play", "bind"
	TrackID   string
	Err       error
}
