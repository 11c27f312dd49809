// Package telemetry accounts active listening time per track and reports it
// in batches.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/llehouerou/wavestream/internal/playlist"
)

// Reporter receives elapsed listening time for a track.
type Reporter interface {
	ReportListeningTime(ctx context.Context, track playlist.Track, elapsed time.Duration) error
}

// Config controls the flush cadence.
type Config struct {
	// Interval between periodic flushes.
	Interval time.Duration
	// MinFlush is the smallest elapsed time a periodic flush reports.
	MinFlush time.Duration
	// Timeout bounds each report.
	Timeout time.Duration
}

// DefaultConfig returns a 5s cadence with a 5s flush threshold.
func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Second,
		MinFlush: 5 * time.Second,
		Timeout:  10 * time.Second,
	}
}

// Telemetry tracks the currently playing track. Each interval of active
// playback is reported exactly once: the accounting point moves forward
// whenever elapsed time is taken for a report. Reports are best-effort and
// never retried.
type Telemetry struct {
	clock    clock.Clock
	reporter Reporter
	cfg      Config
	log      zerolog.Logger

	mu         sync.Mutex
	active     bool
	gen        uint64
	track      playlist.Track
	lastUpdate time.Time
	stopTick   chan struct{}
	closed     bool

	wg sync.WaitGroup
}

// New creates a telemetry accumulator. A nil clock uses the wall clock.
func New(cfg Config, reporter Reporter, clk clock.Clock, log zerolog.Logger) *Telemetry {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.MinFlush < 0 {
		cfg.MinFlush = def.MinFlush
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Telemetry{
		clock:    clk,
		reporter: reporter,
		cfg:      cfg,
		log:      log.With().Str("component", "telemetry").Logger(),
	}
}

// Start begins accruing time for track. Time accrued for a different track
// is flushed first. Starting the track already being accrued is a no-op.
func (t *Telemetry) Start(track playlist.Track) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.active {
		if t.track.ID == track.ID {
			return
		}
		t.stopLocked()
	}

	t.active = true
	t.gen++
	t.track = track
	t.lastUpdate = t.clock.Now()
	t.stopTick = make(chan struct{})

	ticker := t.clock.Ticker(t.cfg.Interval)
	t.wg.Add(1)
	go t.run(ticker, t.stopTick, t.gen)
}

// Stop flushes the partial interval and stops accruing.
func (t *Telemetry) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Active reports whether time is being accrued, and for which track.
func (t *Telemetry) Active() (playlist.Track, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.track, t.active
}

// Close stops accruing and waits for in-flight reports.
func (t *Telemetry) Close() {
	t.mu.Lock()
	t.stopLocked()
	t.closed = true
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *Telemetry) stopLocked() {
	if !t.active {
		return
	}
	elapsed := t.takeLocked()
	if elapsed > 0 {
		t.sendLocked(t.track, elapsed)
	}
	close(t.stopTick)
	t.active = false
}

// takeLocked returns the time since the last accounting point and moves the
// point to now.
func (t *Telemetry) takeLocked() time.Duration {
	now := t.clock.Now()
	elapsed := now.Sub(t.lastUpdate)
	t.lastUpdate = now
	return elapsed
}

func (t *Telemetry) run(ticker *clock.Ticker, stop <-chan struct{}, gen uint64) {
	defer t.wg.Done()
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.tick(gen)
		}
	}
}

func (t *Telemetry) tick(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active || t.gen != gen {
		return
	}
	if t.clock.Since(t.lastUpdate) < t.cfg.MinFlush {
		return
	}
	t.sendLocked(t.track, t.takeLocked())
}

func (t *Telemetry) sendLocked(track playlist.Track, elapsed time.Duration) {
	if t.reporter == nil {
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), t.cfg.Timeout)
		defer cancel()
		if err := t.reporter.ReportListeningTime(ctx, track, elapsed); err != nil {
			t.log.Warn().Err(err).
				Str("track", track.ID).
				Dur("elapsed", elapsed).
				Msg("report listening time")
			return
		}
		t.log.Debug().Str("track", track.ID).Dur("elapsed", elapsed).Msg("listening time reported")
	}()
}
