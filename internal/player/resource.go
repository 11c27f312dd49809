package player

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/llehouerou/wavestream/internal/playlist"
)

// Resource owns the single audio output of a session. Binding a new track
// tears the previous output down completely (pause, close, detach) before the
// replacement is opened, so a replaced output cannot reach the new track's
// listener.
type Resource struct {
	mu      sync.Mutex
	opener  Opener
	volume  float64
	binding *Binding
	log     zerolog.Logger
}

// Binding is the scoped acquisition of an output for one track. It is
// released by the next Bind or by Release.
type Binding struct {
	res    *Resource
	track  playlist.Track
	output Output
	relay  *relay
}

// NewResource creates an unbound resource.
func NewResource(opener Opener, volume float64, log zerolog.Logger) *Resource {
	return &Resource{
		opener: opener,
		volume: clampLevel(volume),
		log:    log.With().Str("component", "resource").Logger(),
	}
}

// Bind releases the current output and opens one for track whose signals
// go to l. On error the resource is left unbound.
func (r *Resource) Bind(track playlist.Track, l Listener) (*Binding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.teardownLocked()

	rl := &relay{target: l}
	out, err := r.opener.Open(track, rl)
	if err != nil {
		rl.detach()
		return nil, errors.Wrapf(err, "open track %s", track.ID)
	}
	out.SetVolume(r.volume)

	b := &Binding{res: r, track: track, output: out, relay: rl}
	r.binding = b
	r.log.Debug().Str("track", track.ID).Str("title", track.Title).Msg("bound")
	return b, nil
}

// Current returns the live binding, or nil.
func (r *Resource) Current() *Binding {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.binding
}

// Pause pauses the bound output, if any.
func (r *Resource) Pause() {
	if out := r.output(); out != nil {
		out.Pause()
	}
}

// Seek moves the bound output, if any.
func (r *Resource) Seek(to time.Duration) {
	if to < 0 {
		to = 0
	}
	if out := r.output(); out != nil {
		out.Seek(to)
	}
}

// SetVolume stores the level and applies it to the bound output, if any.
func (r *Resource) SetVolume(level float64) {
	r.mu.Lock()
	r.volume = clampLevel(level)
	out := r.outputLocked()
	v := r.volume
	r.mu.Unlock()
	if out != nil {
		out.SetVolume(v)
	}
}

// Volume returns the stored level.
func (r *Resource) Volume() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.volume
}

// Position returns the bound output position, or 0.
func (r *Resource) Position() time.Duration {
	if out := r.output(); out != nil {
		return out.Position()
	}
	return 0
}

// Release tears down the bound output. Safe to call when unbound.
func (r *Resource) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teardownLocked()
}

func (r *Resource) output() Output {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outputLocked()
}

func (r *Resource) outputLocked() Output {
	if r.binding == nil {
		return nil
	}
	return r.binding.output
}

func (r *Resource) teardownLocked() {
	b := r.binding
	if b == nil {
		return
	}
	r.binding = nil
	b.output.Pause()
	b.relay.detach()
	if err := b.output.Close(); err != nil {
		r.log.Warn().Err(err).Str("track", b.track.ID).Msg("close output")
	}
}

// Track returns the bound track.
func (b *Binding) Track() playlist.Track {
	return b.track
}

// Live reports whether b is still the resource's binding.
func (b *Binding) Live() bool {
	b.res.mu.Lock()
	defer b.res.mu.Unlock()
	return b.res.binding == b
}

// Play starts the bound output. The call may block while the stream loads
// and is not made under the resource lock.
func (b *Binding) Play(ctx context.Context) error {
	if !b.Live() {
		return ErrStaleBinding
	}
	if err := b.output.Play(ctx); err != nil {
		return err
	}
	if !b.Live() {
		return ErrStaleBinding
	}
	return nil
}

// relay forwards signals until detached. Signals from a torn down output are
// dropped here.
type relay struct {
	mu     sync.RWMutex
	target Listener
}

func (r *relay) detach() {
	r.mu.Lock()
	r.target = nil
	r.mu.Unlock()
}

func (r *relay) get() Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.target
}

func (r *relay) TimeUpdated(t time.Duration) {
	if l := r.get(); l != nil {
		l.TimeUpdated(t)
	}
}

func (r *relay) MetadataLoaded(d time.Duration) {
	if l := r.get(); l != nil {
		l.MetadataLoaded(d)
	}
}

func (r *relay) BufferedUpdated(end time.Duration) {
	if l := r.get(); l != nil {
		l.BufferedUpdated(end)
	}
}

func (r *relay) BufferingChanged(buffering bool) {
	if l := r.get(); l != nil {
		l.BufferingChanged(buffering)
	}
}

func (r *relay) Ended() {
	if l := r.get(); l != nil {
		l.Ended()
	}
}
