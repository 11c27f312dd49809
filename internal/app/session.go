// Package app assembles a player session: the transport controller and the
// services around it, with a single Close that tears them down in order.
package app

import (
	"context"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/benbjohnson/clock"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/llehouerou/wavestream/internal/backend"
	"github.com/llehouerou/wavestream/internal/config"
	"github.com/llehouerou/wavestream/internal/lastfm"
	"github.com/llehouerou/wavestream/internal/media"
	"github.com/llehouerou/wavestream/internal/mpris"
	"github.com/llehouerou/wavestream/internal/notify"
	"github.com/llehouerou/wavestream/internal/playback"
	"github.com/llehouerou/wavestream/internal/player"
	"github.com/llehouerou/wavestream/internal/playlist"
	"github.com/llehouerou/wavestream/internal/power"
	"github.com/llehouerou/wavestream/internal/state"
	"github.com/llehouerou/wavestream/internal/telemetry"
)

// Backend is the library API a session plays from and reports to.
type Backend interface {
	Tracks(ctx context.Context) ([]playlist.Track, error)
	Playlist(ctx context.Context, id string) (*playlist.Context, error)
	RecordPlay(ctx context.Context, contextID string) error
	ReportListeningTime(ctx context.Context, track playlist.Track, elapsed time.Duration) error
}

// Deps are the platform services of a session. Nil optional services fall
// back to no-op implementations.
type Deps struct {
	Backend   Backend
	Opener    player.Opener
	Store     state.Interface
	Media     media.Session
	Inhibitor power.Inhibitor
	// Notifier enables now-playing notifications when set.
	Notifier   notify.Notifier
	Thumbnails *notify.ThumbnailCache
	// Lastfm enables scrobbling when set.
	Lastfm lastfm.API
	Clock  clock.Clock
	Logger zerolog.Logger
}

// Session owns one transport controller and everything it drives. It is
// created once at startup and closed on exit.
type Session struct {
	id         uuid.UUID
	backend    Backend
	store      state.Interface
	telemetry  *telemetry.Telemetry
	power      *power.Manager
	scrobbler  *lastfm.Scrobbler
	nowPlaying *notify.NowPlaying
	controller *playback.Controller
	timeout    time.Duration
	log        zerolog.Logger

	sub       *playback.Subscription
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// Open wires a session from cfg with the real platform services. Services
// that are unavailable degrade to no-ops.
func Open(cfg *config.Config, log zerolog.Logger) (*Session, error) {
	client, err := backend.New(backend.Config{
		BaseURL: cfg.Backend.URL,
		Token:   cfg.Backend.Token,
		Timeout: cfg.Backend.Timeout,
	}, log)
	if err != nil {
		return nil, err
	}

	store, err := state.Open(cfg.StatePath, log)
	if err != nil {
		return nil, err
	}

	// Streams are long reads; only the backend API calls carry a timeout.
	streamClient := &http.Client{}

	deps := Deps{
		Backend: client,
		Opener:  player.NewBeepOpener(streamClient, cfg.Playback.PositionInterval, log),
		Store:   store,
		Logger:  log,
	}

	if cfg.Media.Enabled {
		if s, err := mpris.New(cfg.Media.Identity, log); err != nil {
			log.Info().Err(err).Msg("media session unavailable")
		} else {
			deps.Media = s
		}
	}

	if cfg.Power.Enabled {
		inh, err := power.Detect(cfg.Media.Identity)
		if err != nil {
			log.Info().Err(err).Msg("wake lock unavailable")
		}
		deps.Inhibitor = inh
	}

	if cfg.Notifications.Enabled {
		n, err := notify.New(cfg.Media.Identity)
		if err != nil {
			log.Info().Err(err).Msg("notifications unavailable")
		} else {
			deps.Notifier = n
			deps.Thumbnails = notify.NewThumbnailCache(
				filepath.Join(xdg.CacheHome, "wavestream", "thumbnails"), streamClient, log)
		}
	}

	if cfg.HasLastfmConfig() {
		lc := lastfm.New(cfg.Lastfm.APIKey, cfg.Lastfm.APISecret)
		lc.SetSessionKey(cfg.Lastfm.SessionKey)
		deps.Lastfm = lc
	}

	s, err := New(cfg, deps)
	if err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

// New builds a session from explicit dependencies.
func New(cfg *config.Config, deps Deps) (*Session, error) {
	if deps.Backend == nil {
		return nil, errors.New("app: backend is required")
	}
	if deps.Opener == nil {
		return nil, errors.New("app: opener is required")
	}
	if deps.Store == nil {
		deps.Store = state.NewMock()
	}
	if deps.Media == nil {
		deps.Media = media.Noop{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}

	s := &Session{
		id:      uuid.New(),
		backend: deps.Backend,
		store:   deps.Store,
		timeout: cfg.Telemetry.Timeout,
	}
	s.log = deps.Logger.With().Str("session", s.id.String()).Logger()

	reporters := telemetry.Reporters{deps.Backend}
	if deps.Lastfm != nil {
		s.scrobbler = lastfm.NewScrobbler(deps.Lastfm, deps.Clock, s.log)
		reporters = append(reporters, s.scrobbler)
	}
	if deps.Notifier != nil {
		s.nowPlaying = notify.NewNowPlaying(deps.Notifier, deps.Thumbnails, int32(cfg.Notifications.TimeoutMs))
	}

	s.telemetry = telemetry.New(telemetry.Config{
		Interval: cfg.Telemetry.Interval,
		MinFlush: cfg.Telemetry.MinFlush,
		Timeout:  cfg.Telemetry.Timeout,
	}, reporters, deps.Clock, s.log)
	s.power = power.NewManager(deps.Inhibitor, s.log)

	ctrl, err := playback.New(playback.Config{
		RestartThreshold: cfg.Playback.RestartThreshold,
		SeekOffset:       cfg.Playback.SeekOffset,
		GestureRetry:     cfg.Playback.GestureRetry,
	}, playback.Deps{
		Opener:    deps.Opener,
		Session:   deps.Media,
		Power:     s.power,
		Telemetry: s.telemetry,
		Recorder:  deps.Backend,
		Prefs:     deps.Store,
		Logger:    s.log,
	})
	if err != nil {
		s.telemetry.Close()
		return nil, err
	}
	s.controller = ctrl

	if s.scrobbler != nil || s.nowPlaying != nil {
		s.sub = ctrl.Subscribe()
		s.wg.Add(1)
		go s.announce(s.sub)
	}

	s.log.Info().
		Bool("scrobbling", s.scrobbler != nil).
		Bool("notifications", s.nowPlaying != nil).
		Msg("session opened")
	return s, nil
}

// ID identifies the session in logs.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Controller returns the transport controller.
func (s *Session) Controller() *playback.Controller {
	return s.controller
}

// PlayPlaylist loads a playlist and starts playing it at start.
func (s *Session) PlayPlaylist(ctx context.Context, id string, start int) error {
	pctx, err := s.backend.Playlist(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "load playlist %s", id)
	}
	s.controller.Initialize(ctx, pctx.Tracks, start, pctx)
	return nil
}

// PlayLibrary starts playing the whole library at start.
func (s *Session) PlayLibrary(ctx context.Context, start int) error {
	tracks, err := s.backend.Tracks(ctx)
	if err != nil {
		return errors.Wrap(err, "load tracks")
	}
	s.controller.Initialize(ctx, tracks, start, nil)
	return nil
}

// Close stops playback, flushes pending listening time and releases every
// service. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs error
		errs = errors.CombineErrors(errs, s.controller.Close())
		s.telemetry.Close()
		s.wg.Wait()
		if s.nowPlaying != nil {
			if err := s.nowPlaying.Dismiss(); err != nil {
				s.log.Debug().Err(err).Msg("dismiss notification")
			}
		}
		errs = errors.CombineErrors(errs, s.power.Close())
		errs = errors.CombineErrors(errs, s.store.Close())
		s.closeErr = errs
		s.log.Info().Msg("session closed")
	})
	return s.closeErr
}

// announce publishes the current track to Last.fm and the desktop once it
// actually plays, not when it is merely cued. Track and state events may be
// read in any order, so the decision is made on a snapshot.
func (s *Session) announce(sub *playback.Subscription) {
	defer s.wg.Done()
	lastID, lastIdx := "", -1
	for {
		select {
		case <-sub.Done:
			return
		case <-sub.TrackChanged:
		case <-sub.StateChanged:
		}
		snap := s.controller.Snapshot()
		if !snap.Playing || snap.Track == nil {
			continue
		}
		if snap.Track.ID == lastID && snap.Index == lastIdx {
			continue
		}
		lastID, lastIdx = snap.Track.ID, snap.Index
		s.announceTrack(*snap.Track)
	}
}

func (s *Session) announceTrack(track playlist.Track) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if s.scrobbler != nil {
		if err := s.scrobbler.NowPlaying(ctx, track); err != nil {
			s.log.Warn().Err(err).Str("track", track.ID).Msg("update now playing")
		}
	}
	if s.nowPlaying != nil {
		if err := s.nowPlaying.Show(ctx, track); err != nil {
			s.log.Warn().Err(err).Str("track", track.ID).Msg("show notification")
		}
	}
}
