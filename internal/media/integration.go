package media

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/llehouerou/wavestream/internal/playlist"
)

// DefaultSeekOffset is the relative seek used when the OS gives no offset.
const DefaultSeekOffset = 19 * time.Second

var artworkSizes = []int{96, 128, 192, 256, 384, 512}

// Transport is the set of player operations the OS surface can trigger.
type Transport interface {
	Play(ctx context.Context)
	Pause()
	Stop()
	Next(ctx context.Context)
	Previous(ctx context.Context)
	Seek(to time.Duration)
	SeekBy(delta time.Duration)
	ToggleRepeat()
	ToggleShuffle()
}

// Integration keeps a Session in sync with the transport.
type Integration struct {
	session    Session
	transport  Transport
	seekOffset time.Duration
	log        zerolog.Logger

	mu      sync.Mutex
	lastPos PositionState
}

// NewIntegration wires session actions to transport.
func NewIntegration(session Session, transport Transport, seekOffset time.Duration, log zerolog.Logger) *Integration {
	if session == nil {
		session = Noop{}
	}
	if seekOffset <= 0 {
		seekOffset = DefaultSeekOffset
	}
	return &Integration{
		session:    session,
		transport:  transport,
		seekOffset: seekOffset,
		log:        log.With().Str("component", "media").Logger(),
	}
}

// Bind publishes metadata for track and registers every action handler
// again. The context name, if any, is shown as the album.
func (i *Integration) Bind(track playlist.Track, ctx *playlist.Context) {
	i.mu.Lock()
	i.lastPos = PositionState{}
	i.mu.Unlock()

	m := MetadataFor(track)
	if ctx != nil {
		m.Album = ctx.Name
	}
	i.session.SetMetadata(m)
	i.session.SetActionHandlers(i.handlers())
	i.log.Debug().Str("track", track.ID).Msg("metadata published")
}

// SetPlaying mirrors the play/pause status.
func (i *Integration) SetPlaying(playing bool) {
	if playing {
		i.session.SetPlaybackStatus(StatusPlaying)
		return
	}
	i.session.SetPlaybackStatus(StatusPaused)
}

// UpdatePosition mirrors the position when a duration is known and the
// state changed.
func (i *Integration) UpdatePosition(position, duration time.Duration, rate float64) {
	if duration <= 0 {
		return
	}
	position = min(max(position, 0), duration)
	ps := PositionState{Position: position, Duration: duration, Rate: rate}

	i.mu.Lock()
	if ps == i.lastPos {
		i.mu.Unlock()
		return
	}
	i.lastPos = ps
	i.mu.Unlock()

	i.session.SetPositionState(ps)
}

// SetModes mirrors repeat and shuffle.
func (i *Integration) SetModes(repeat, shuffle bool) {
	i.session.SetModes(Modes{Repeat: repeat, Shuffle: shuffle})
}

// Clear removes the now-playing entry.
func (i *Integration) Clear() {
	i.mu.Lock()
	i.lastPos = PositionState{}
	i.mu.Unlock()

	i.session.SetMetadata(Metadata{})
	i.session.SetPlaybackStatus(StatusNone)
	i.session.SetActionHandlers(nil)
}

// Close releases the session.
func (i *Integration) Close() error {
	return i.session.Close()
}

func (i *Integration) handlers() Handlers {
	t := i.transport
	offset := func(d ActionDetails) time.Duration {
		if d.SeekOffset > 0 {
			return d.SeekOffset
		}
		return i.seekOffset
	}
	return Handlers{
		ActionPlay:         func(ActionDetails) { t.Play(context.Background()) },
		ActionPause:        func(ActionDetails) { t.Pause() },
		ActionPrevious:     func(ActionDetails) { t.Previous(context.Background()) },
		ActionNext:         func(ActionDetails) { t.Next(context.Background()) },
		ActionSeekBackward: func(d ActionDetails) { t.SeekBy(-offset(d)) },
		ActionSeekForward:  func(d ActionDetails) { t.SeekBy(offset(d)) },
		ActionSeekTo:       func(d ActionDetails) { t.Seek(d.SeekTime) },
		ActionStop:         func(ActionDetails) { t.Stop() },

		ActionToggleRepeat:  func(ActionDetails) { t.ToggleRepeat() },
		ActionToggleShuffle: func(ActionDetails) { t.ToggleShuffle() },
	}
}

// MetadataFor builds the now-playing metadata of a track, with the
// thumbnail offered at several sizes.
func MetadataFor(track playlist.Track) Metadata {
	m := Metadata{
		TrackID: track.ID,
		Title:   track.Title,
		Artist:  track.Uploader,
		Length:  track.Duration,
	}
	if track.ThumbnailURL != "" {
		m.Artwork = make([]Artwork, 0, len(artworkSizes))
		for _, s := range artworkSizes {
			m.Artwork = append(m.Artwork, Artwork{
				URL:   track.ThumbnailURL,
				Sizes: fmt.Sprintf("%dx%d", s, s),
				Type:  "image/jpeg",
			})
		}
	}
	return m
}
