package lastfm

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/llehouerou/wavestream/internal/playlist"
)

const (
	// MinScrobbleDuration is the shortest track that can be scrobbled.
	MinScrobbleDuration = 30 * time.Second
	// MaxScrobbleThreshold caps the listening time required for a scrobble.
	MaxScrobbleThreshold = 4 * time.Minute
)

// API is the part of Client the scrobbler needs.
type API interface {
	UpdateNowPlaying(track ScrobbleTrack) error
	Scrobble(track ScrobbleTrack) error
}

// Scrobbler turns listening-time reports into Last.fm scrobbles. Each play
// of a track is scrobbled at most once, as soon as the listened time
// reaches the threshold.
type Scrobbler struct {
	api   API
	clock clock.Clock
	log   zerolog.Logger

	mu        sync.Mutex
	announced bool
	trackID   string
	startedAt time.Time
	listened  time.Duration
	scrobbled bool
}

// NewScrobbler creates a scrobbler. A nil clock uses the wall clock.
func NewScrobbler(api API, clk clock.Clock, log zerolog.Logger) *Scrobbler {
	if clk == nil {
		clk = clock.New()
	}
	return &Scrobbler{
		api:   api,
		clock: clk,
		log:   log.With().Str("component", "lastfm").Logger(),
	}
}

// Threshold returns the listening time after which d is scrobbled, or false
// if a track of that length is never scrobbled.
func Threshold(d time.Duration) (time.Duration, bool) {
	if d <= MinScrobbleDuration {
		return 0, false
	}
	return min(d/2, MaxScrobbleThreshold), true
}

// NowPlaying starts a new play of track and announces it.
func (s *Scrobbler) NowPlaying(_ context.Context, track playlist.Track) error {
	s.mu.Lock()
	s.announced = true
	s.resetLocked(track.ID, s.clock.Now())
	s.mu.Unlock()
	return s.api.UpdateNowPlaying(TrackFrom(track))
}

// ReportListeningTime accumulates elapsed for track and scrobbles once the
// threshold is crossed.
func (s *Scrobbler) ReportListeningTime(_ context.Context, track playlist.Track, elapsed time.Duration) error {
	s.mu.Lock()
	if track.ID != s.trackID {
		if s.announced {
			// Late flush for a play that has already been replaced.
			current := s.trackID
			s.mu.Unlock()
			s.log.Debug().Str("track", track.ID).Str("current", current).Msg("ignoring listening time for previous track")
			return nil
		}
		s.resetLocked(track.ID, s.clock.Now().Add(-elapsed))
	}
	s.listened += elapsed
	threshold, ok := Threshold(track.Duration)
	if !ok || s.scrobbled || s.listened < threshold {
		s.mu.Unlock()
		return nil
	}
	s.scrobbled = true
	st := TrackFrom(track)
	st.Timestamp = s.startedAt
	s.mu.Unlock()

	if err := s.api.Scrobble(st); err != nil {
		return err
	}
	s.log.Debug().Str("track", track.ID).Str("title", track.Title).Msg("scrobbled")
	return nil
}

func (s *Scrobbler) resetLocked(id string, at time.Time) {
	s.trackID = id
	s.startedAt = at
	s.listened = 0
	s.scrobbled = false
}
