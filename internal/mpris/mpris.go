//go:build linux

package mpris

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"
	"github.com/rs/zerolog"

	"github.com/llehouerou/wavestream/internal/media"
)

// Session exposes the player on the session bus as an MPRIS media player.
// Property reads are served from the last published state.
type Session struct {
	server *server.Server
	log    zerolog.Logger

	mu       sync.RWMutex
	metadata media.Metadata
	handlers media.Handlers
	status   media.PlaybackStatus
	position media.PositionState
	modes    media.Modes
}

// Available reports whether a session bus can be reached.
func Available() bool {
	conn, err := dbus.SessionBus()
	if err != nil {
		return false
	}
	return conn.Connected()
}

// New starts an MPRIS server named identity.
func New(identity string, log zerolog.Logger) (*Session, error) {
	if !Available() {
		return nil, errors.New("no session bus")
	}
	s := &Session{log: log.With().Str("component", "mpris").Logger()}
	s.server = server.NewServer(identity, &rootAdapter{identity: identity}, &playerAdapter{s: s})

	go func() {
		if err := s.server.Listen(); err != nil {
			s.log.Warn().Err(err).Msg("mpris server stopped")
		}
	}()
	return s, nil
}

func (s *Session) SetMetadata(m media.Metadata) {
	s.mu.Lock()
	s.metadata = m
	s.position = media.PositionState{}
	s.mu.Unlock()
}

func (s *Session) SetActionHandlers(h media.Handlers) {
	s.mu.Lock()
	s.handlers = h
	s.mu.Unlock()
}

func (s *Session) SetPlaybackStatus(st media.PlaybackStatus) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

func (s *Session) SetPositionState(p media.PositionState) {
	s.mu.Lock()
	s.position = p
	s.mu.Unlock()
}

func (s *Session) SetModes(m media.Modes) {
	s.mu.Lock()
	s.modes = m
	s.mu.Unlock()
}

// Close stops the server and releases D-Bus resources.
func (s *Session) Close() error {
	return s.server.Stop()
}

// dispatch runs the handler registered for action, if any.
func (s *Session) dispatch(action media.Action, details media.ActionDetails) error {
	s.mu.RLock()
	h := s.handlers[action]
	s.mu.RUnlock()
	if h == nil {
		return nil
	}
	h(details)
	return nil
}

func (s *Session) snapshot() (media.Metadata, media.PlaybackStatus, media.PositionState, media.Modes) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata, s.status, s.position, s.modes
}

func (s *Session) has(action media.Action) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handlers[action] != nil
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct {
	identity string
}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // Not supported - app manages its own lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil
}

func (r *rootAdapter) Identity() (string, error) {
	return r.identity, nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/wav"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter and optional interfaces.
type playerAdapter struct {
	s *Session
}

func (p *playerAdapter) Next() error {
	return p.s.dispatch(media.ActionNext, media.ActionDetails{})
}

func (p *playerAdapter) Previous() error {
	return p.s.dispatch(media.ActionPrevious, media.ActionDetails{})
}

func (p *playerAdapter) Pause() error {
	return p.s.dispatch(media.ActionPause, media.ActionDetails{})
}

func (p *playerAdapter) PlayPause() error {
	_, status, _, _ := p.s.snapshot()
	if status == media.StatusPlaying {
		return p.Pause()
	}
	return p.Play()
}

func (p *playerAdapter) Stop() error {
	return p.s.dispatch(media.ActionStop, media.ActionDetails{})
}

func (p *playerAdapter) Play() error {
	return p.s.dispatch(media.ActionPlay, media.ActionDetails{})
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	d := time.Duration(offset) * time.Microsecond
	switch {
	case d == 0:
		return nil
	case d < 0:
		return p.s.dispatch(media.ActionSeekBackward, media.ActionDetails{SeekOffset: -d})
	default:
		return p.s.dispatch(media.ActionSeekForward, media.ActionDetails{SeekOffset: d})
	}
}

func (p *playerAdapter) SetPosition(trackID string, position types.Microseconds) error {
	m, _, _, _ := p.s.snapshot()
	if trackID != formatTrackID(m.TrackID) {
		return nil // stale request for a previous track
	}
	return p.s.dispatch(media.ActionSeekTo, media.ActionDetails{
		SeekTime: time.Duration(position) * time.Microsecond,
	})
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil // Not supported
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	_, status, _, _ := p.s.snapshot()
	switch status {
	case media.StatusPlaying:
		return types.PlaybackStatusPlaying, nil
	case media.StatusPaused:
		return types.PlaybackStatusPaused, nil
	case media.StatusNone:
		return types.PlaybackStatusStopped, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	_, _, pos, _ := p.s.snapshot()
	if pos.Rate <= 0 {
		return 1.0, nil
	}
	return pos.Rate, nil
}

func (p *playerAdapter) SetRate(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	m, _, _, _ := p.s.snapshot()
	if m.IsZero() {
		return types.Metadata{}, nil
	}

	meta := types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(m.TrackID)),
		Length:  types.Microseconds(m.Length.Microseconds()),
		Title:   m.Title,
		Album:   m.Album,
		ArtUrl:  largestArtwork(m.Artwork),
	}
	if m.Artist != "" {
		meta.Artist = []string{m.Artist}
	}
	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return 1.0, nil // Volume is owned by the player
}

func (p *playerAdapter) SetVolume(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Position() (int64, error) {
	_, _, pos, _ := p.s.snapshot()
	return pos.Position.Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	return p.s.has(media.ActionNext), nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return p.s.has(media.ActionPrevious), nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return p.s.has(media.ActionPlay), nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return p.s.has(media.ActionPause), nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return p.s.has(media.ActionSeekTo), nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	_, _, _, modes := p.s.snapshot()
	if modes.Repeat {
		return types.LoopStatusTrack, nil
	}
	return types.LoopStatusNone, nil
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
// Playlist looping is governed by autoplay-on-end, so only Track and None
// are honored.
func (p *playerAdapter) SetLoopStatus(status types.LoopStatus) error {
	_, _, _, modes := p.s.snapshot()
	want := status == types.LoopStatusTrack
	if status == types.LoopStatusPlaylist || want == modes.Repeat {
		return nil
	}
	return p.s.dispatch(media.ActionToggleRepeat, media.ActionDetails{})
}

// Shuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) Shuffle() (bool, error) {
	_, _, _, modes := p.s.snapshot()
	return modes.Shuffle, nil
}

// SetShuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) SetShuffle(shuffle bool) error {
	_, _, _, modes := p.s.snapshot()
	if shuffle == modes.Shuffle {
		return nil
	}
	return p.s.dispatch(media.ActionToggleShuffle, media.ActionDetails{})
}

func formatTrackID(id string) string {
	if id == "" {
		return "/org/mpris/MediaPlayer2/TrackList/NoTrack"
	}
	h := fnv.New64a()
	h.Write([]byte(id))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
