// internal/player/interface.go
package player

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/llehouerou/wavestream/internal/playlist"
)

var (
	// ErrPlayRejected means the platform refused to start audio. It is an
	// expected outcome, not a fault.
	ErrPlayRejected = errors.New("playback rejected")
	// ErrUnsupportedSource means the stream could not be decoded.
	ErrUnsupportedSource = errors.New("unsupported source")
	// ErrAborted means a pause or teardown overtook a pending play.
	ErrAborted = errors.New("play aborted")
	// ErrClosed is returned by outputs used after Close.
	ErrClosed = errors.New("output closed")
	// ErrStaleBinding is returned when playing a binding that has been replaced.
	ErrStaleBinding = errors.New("stale binding")
)

// Listener receives the signals of a bound output.
type Listener interface {
	TimeUpdated(t time.Duration)
	MetadataLoaded(duration time.Duration)
	BufferedUpdated(end time.Duration)
	BufferingChanged(buffering bool)
	Ended()
}

// Output is the audio output for a single track. Outputs are never reused
// across tracks.
type Output interface {
	// Play starts or resumes audio. It may block while the stream loads.
	Play(ctx context.Context) error
	Pause()
	Seek(to time.Duration)
	SetVolume(level float64)
	Position() time.Duration
	Close() error
}

// Opener creates the output for a track, delivering its signals to l.
type Opener interface {
	Open(track playlist.Track, l Listener) (Output, error)
}
