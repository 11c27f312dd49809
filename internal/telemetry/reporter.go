package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/llehouerou/wavestream/internal/playlist"
)

// Reporters fans a report out to several sinks. Every sink is called even if
// an earlier one fails.
type Reporters []Reporter

func (rs Reporters) ReportListeningTime(ctx context.Context, track playlist.Track, elapsed time.Duration) error {
	var errs error
	for _, r := range rs {
		if err := r.ReportListeningTime(ctx, track, elapsed); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}

// Report is one recorded call.
type Report struct {
	TrackID string
	Elapsed time.Duration
}

// Recorder is a Reporter that keeps every report in memory.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
	err     error
}

func (r *Recorder) ReportListeningTime(_ context.Context, track playlist.Track, elapsed time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{TrackID: track.ID, Elapsed: elapsed})
	return r.err
}

// SetError makes later reports fail after being recorded.
func (r *Recorder) SetError(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *Recorder) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Report(nil), r.reports...)
}

// Total sums the reported time for a track.
func (r *Recorder) Total(trackID string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total time.Duration
	for _, rep := range r.reports {
		if rep.TrackID == trackID {
			total += rep.Elapsed
		}
	}
	return total
}
