// Package playback sequences the queue, the audio resource and the side
// channels (media session, wake lock, listening telemetry) behind a single
// transport API.
package playback

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/llehouerou/wavestream/internal/media"
	"github.com/llehouerou/wavestream/internal/player"
	"github.com/llehouerou/wavestream/internal/playlist"
	"github.com/llehouerou/wavestream/internal/state"
)

// DefaultRestartThreshold is how far into a track Previous restarts it
// instead of moving back.
const DefaultRestartThreshold = 19 * time.Second

// Accumulator accrues listening time for the playing track.
type Accumulator interface {
	Start(track playlist.Track)
	Stop()
}

// WakeLock keeps the machine awake while audio plays. Implementations log
// their own failures.
type WakeLock interface {
	Acquire()
	Release()
}

// PlayRecorder counts a play of a collection.
type PlayRecorder interface {
	RecordPlay(ctx context.Context, contextID string) error
}

// PreferenceStore loads and saves the persisted preferences.
type PreferenceStore interface {
	GetPreferences() (state.Preferences, error)
	SavePreferences(p state.Preferences)
}

// Config tunes transport behavior.
type Config struct {
	// RestartThreshold is the position past which Previous restarts the
	// current track.
	RestartThreshold time.Duration
	// SeekOffset is the relative seek of media seek-forward/backward keys.
	SeekOffset time.Duration
	// GestureRetry arms a one-shot retry on the next UserGesture when the
	// platform rejects playback.
	GestureRetry bool
}

// Deps are the collaborators of a Controller. Only Opener is required.
type Deps struct {
	Opener    player.Opener
	Session   media.Session
	Power     WakeLock
	Telemetry Accumulator
	Recorder  PlayRecorder
	Prefs     PreferenceStore
	Shuffler  playlist.Shuffler
	Logger    zerolog.Logger
}

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	State       State
	Track       *playlist.Track
	Index       int
	Tracks      []playlist.Track
	Context     *playlist.Context
	Shuffled    bool
	Position    time.Duration
	Duration    time.Duration
	Buffered    time.Duration
	Playing     bool
	Buffering   bool
	Preferences state.Preferences
}

// Controller is the only entry point for playback actions. Every action
// updates the visible state before it waits on audio, so callers observe
// intent immediately. Failures never propagate: they are logged, published
// as ErrorEvents, and leave the controller paused.
type Controller struct {
	cfg       Config
	res       *player.Resource
	media     *media.Integration
	power     WakeLock
	telemetry Accumulator
	recorder  PlayRecorder
	store     PreferenceStore
	log       zerolog.Logger

	mu       sync.Mutex
	queue    *playlist.Queue
	prefs    state.Preferences
	binding  *player.Binding
	bound    *playlist.Track
	boundIdx int
	// gen identifies the live binding; signals carrying another value are
	// from a torn down output.
	gen uint64
	// seq changes on every transport decision; a play result is applied
	// only if no decision was made while it was pending.
	seq        uint64
	playing    bool
	buffering  bool
	position   time.Duration
	duration   time.Duration
	buffered   time.Duration
	retryArmed bool
	closed     bool

	subs   []*Subscription
	subsMu sync.RWMutex
}

// Verify Controller implements media.Transport at compile time.
var _ media.Transport = (*Controller)(nil)

// New creates a controller and loads the persisted preferences.
func New(cfg Config, deps Deps) (*Controller, error) {
	if deps.Opener == nil {
		return nil, errors.New("playback: opener is required")
	}
	if cfg.RestartThreshold <= 0 {
		cfg.RestartThreshold = DefaultRestartThreshold
	}
	log := deps.Logger.With().Str("component", "playback").Logger()

	prefs := state.DefaultPreferences()
	if deps.Prefs != nil {
		p, err := deps.Prefs.GetPreferences()
		if err != nil {
			log.Warn().Err(err).Msg("load preferences, using defaults")
		} else {
			prefs = p
		}
	}

	c := &Controller{
		cfg:       cfg,
		power:     deps.Power,
		telemetry: deps.Telemetry,
		recorder:  deps.Recorder,
		store:     deps.Prefs,
		log:       log,
		queue:     playlist.NewQueue(),
		prefs:     prefs,
		boundIdx:  -1,
	}
	if c.power == nil {
		c.power = noopWakeLock{}
	}
	if c.telemetry == nil {
		c.telemetry = noopAccumulator{}
	}
	if deps.Shuffler != nil {
		c.queue.SetShuffler(deps.Shuffler)
	}
	c.res = player.NewResource(deps.Opener, prefs.Volume, deps.Logger)
	c.media = media.NewIntegration(deps.Session, c, cfg.SeekOffset, deps.Logger)
	c.media.SetModes(prefs.Repeat, prefs.Shuffle)
	return c, nil
}

// Initialize replaces the queue and binds its start track. When ctx names a
// collection, its play is recorded before audio starts; a failed record
// does not prevent playback. If another action happens while the record is
// pending, playback is left to that action.
func (c *Controller) Initialize(ctx context.Context, tracks []playlist.Track, start int, pctx *playlist.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	prev := c.stateLocked()
	c.queue.Initialize(tracks, start, pctx)
	if c.prefs.Shuffle {
		c.queue.SetShuffle(true)
	}
	c.seq++
	c.retryArmed = false
	c.setPlayingLocked(false)
	c.emitQueueLocked()

	if c.queue.IsEmpty() {
		c.clearLocked()
		c.emitStateLocked(prev)
		c.mu.Unlock()
		return
	}
	b, ok := c.bindLocked()
	c.emitStateLocked(prev)
	seq := c.seq
	c.mu.Unlock()
	if !ok {
		return
	}

	if pctx != nil && pctx.ID != "" && c.recorder != nil {
		if err := c.recorder.RecordPlay(ctx, pctx.ID); err != nil {
			c.log.Warn().Err(err).Str("context", pctx.ID).Msg("record play")
		}
	}

	c.mu.Lock()
	if c.closed || seq != c.seq {
		c.mu.Unlock()
		return
	}
	seq = c.startLocked()
	c.mu.Unlock()
	c.await(ctx, b, seq)
}

// PlayAt binds the track at index and plays it. Out-of-range indexes are
// ignored.
func (c *Controller) PlayAt(ctx context.Context, index int) {
	c.mu.Lock()
	if c.closed || !c.queue.JumpTo(index) {
		c.mu.Unlock()
		return
	}
	c.playCurrent(ctx)
}

// Play resumes the bound track, binding the current queue track first if
// nothing is bound.
func (c *Controller) Play(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.playing || c.queue.IsEmpty() {
		c.mu.Unlock()
		return
	}
	prev := c.stateLocked()
	if c.binding == nil {
		if _, ok := c.bindLocked(); !ok {
			c.emitStateLocked(prev)
			c.mu.Unlock()
			return
		}
	}
	b := c.binding
	seq := c.startLocked()
	c.emitStateLocked(prev)
	c.mu.Unlock()
	c.await(ctx, b, seq)
}

// Pause pauses playback, flushes pending listening time and releases the
// wake lock. Pausing twice is the same as pausing once.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	prev := c.stateLocked()
	c.seq++
	c.retryArmed = false
	c.res.Pause()
	c.setPlayingLocked(false)
	c.emitStateLocked(prev)
}

// PlayPause toggles between Play and Pause.
func (c *Controller) PlayPause(ctx context.Context) {
	c.mu.Lock()
	playing := c.playing
	c.mu.Unlock()
	if playing {
		c.Pause()
		return
	}
	c.Play(ctx)
}

// Stop pauses and rewinds the current track.
func (c *Controller) Stop() {
	c.Pause()
	c.Seek(0)
}

// Next moves forward in the queue. Past the last track the queue wraps to
// its start; playback continues there only with autoplay on end.
func (c *Controller) Next(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.queue.IsEmpty() {
		c.mu.Unlock()
		return
	}
	if _, stop := c.queue.Advance(c.prefs.AutoplayOnEnd); stop {
		c.queue.JumpTo(0)
		c.cueCurrentLocked()
		c.mu.Unlock()
		return
	}
	c.playCurrent(ctx)
}

// Previous restarts the current track when it is past the restart threshold
// or first in the queue, and moves back one track otherwise.
func (c *Controller) Previous(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.queue.IsEmpty() {
		c.mu.Unlock()
		return
	}
	_, restart := c.queue.Retreat(c.position.Seconds(), c.cfg.RestartThreshold.Seconds())
	if restart {
		c.mu.Unlock()
		c.Seek(0)
		return
	}
	c.playCurrent(ctx)
}

// Seek moves the bound track to an absolute position, clamped to the
// track.
func (c *Controller) Seek(to time.Duration) {
	c.mu.Lock()
	if c.closed || c.binding == nil {
		c.mu.Unlock()
		return
	}
	to = max(to, 0)
	if c.duration > 0 {
		to = min(to, c.duration)
	}
	c.position = to
	c.media.UpdatePosition(to, c.duration, 1)
	c.emitPositionLocked()
	c.mu.Unlock()

	// Outputs may report the new position synchronously.
	c.res.Seek(to)
}

// SeekBy moves the bound track relative to its position.
func (c *Controller) SeekBy(delta time.Duration) {
	c.mu.Lock()
	to := c.position + delta
	c.mu.Unlock()
	c.Seek(to)
}

// SetVolume sets and persists the volume, clamped to [0, 1].
func (c *Controller) SetVolume(v float64) {
	v = min(max(v, 0), 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.res.SetVolume(v)
	c.prefs.Volume = v
	c.savePrefsLocked()
	c.forEachSub(func(s *Subscription) { s.sendVolume(VolumeChange{Volume: v}) })
}

// ToggleShuffle flips between shuffled and original queue order and
// persists the choice. The bound track is not affected.
func (c *Controller) ToggleShuffle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.prefs.Shuffle = !c.prefs.Shuffle
	c.queue.SetShuffle(c.prefs.Shuffle)
	c.savePrefsLocked()
	c.emitModeLocked()
	c.emitQueueLocked()
}

// ToggleRepeat flips repeating the current track when it ends.
func (c *Controller) ToggleRepeat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.prefs.Repeat = !c.prefs.Repeat
	c.savePrefsLocked()
	c.emitModeLocked()
}

// ToggleAutoplayOnEnd flips whether the queue keeps playing after its last
// track.
func (c *Controller) ToggleAutoplayOnEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.prefs.AutoplayOnEnd = !c.prefs.AutoplayOnEnd
	c.savePrefsLocked()
	c.emitModeLocked()
}

// TogglePlayerMode switches between the compact and expanded player.
func (c *Controller) TogglePlayerMode() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.prefs.PlayerMode = c.prefs.PlayerMode.Toggle()
	c.savePrefsLocked()
	c.emitModeLocked()
}

// AddToQueue appends tracks. On an empty queue the first one becomes
// current without starting playback.
func (c *Controller) AddToQueue(tracks ...playlist.Track) {
	if len(tracks) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.queue.Add(tracks...)
	c.emitQueueLocked()
}

// RemoveFromQueue removes the track at index. When it is the current track,
// the next one is bound and keeps the play state. Invalid indexes are
// ignored.
func (c *Controller) RemoveFromQueue(ctx context.Context, index int) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	wasCurrent := index == c.queue.CurrentIndex()
	if !c.queue.RemoveAt(index) {
		c.mu.Unlock()
		return
	}
	c.emitQueueLocked()

	if c.queue.IsEmpty() {
		prev := c.stateLocked()
		c.clearLocked()
		c.emitStateLocked(prev)
		c.mu.Unlock()
		return
	}
	if !wasCurrent {
		c.followCurrentLocked()
		c.mu.Unlock()
		return
	}
	if c.binding == nil {
		c.mu.Unlock()
		return
	}
	if c.playing {
		c.playCurrent(ctx)
		return
	}
	c.cueCurrentLocked()
	c.mu.Unlock()
}

// MoveInQueue moves a track, keeping the current track current.
func (c *Controller) MoveInQueue(from, to int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.queue.Move(from, to) {
		return
	}
	c.followCurrentLocked()
	c.emitQueueLocked()
}

// ClearQueue stops playback, releases the output and empties the queue.
func (c *Controller) ClearQueue() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	prev := c.stateLocked()
	c.clearLocked()
	c.emitQueueLocked()
	c.emitStateLocked(prev)
}

// UserGesture fires the retry armed by a rejected play, once.
func (c *Controller) UserGesture(ctx context.Context) {
	c.mu.Lock()
	armed := c.retryArmed
	c.retryArmed = false
	c.mu.Unlock()
	if armed {
		c.log.Debug().Msg("retrying playback on user gesture")
		c.Play(ctx)
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		State:       c.stateLocked(),
		Index:       c.queue.CurrentIndex(),
		Tracks:      c.queue.Tracks(),
		Shuffled:    c.queue.Shuffled(),
		Position:    c.position,
		Duration:    c.duration,
		Buffered:    c.buffered,
		Playing:     c.playing,
		Buffering:   c.buffering,
		Preferences: c.prefs,
	}
	if t := c.queue.Current(); t != nil {
		cp := *t
		s.Track = &cp
	}
	if pc := c.queue.Context(); pc != nil {
		cp := *pc
		s.Context = &cp
	}
	return s
}

// Subscribe creates a new event subscription.
func (c *Controller) Subscribe() *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	sub := newSubscription()
	if c.closed {
		sub.close()
		return sub
	}
	c.subs = append(c.subs, sub)
	return sub
}

// Close flushes telemetry, releases the output, the wake lock and the media
// session, and ends every subscription. Later calls are no-ops.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.clearLocked()
	c.closed = true
	c.mu.Unlock()

	err := c.media.Close()

	c.subsMu.Lock()
	for _, sub := range c.subs {
		sub.close()
	}
	c.subs = nil
	c.subsMu.Unlock()

	return errors.Wrap(err, "close media session")
}

// playCurrent binds the current queue track and plays it. It must be called
// with c.mu held and releases it.
func (c *Controller) playCurrent(ctx context.Context) {
	prev := c.stateLocked()
	b, ok := c.bindLocked()
	if !ok {
		c.emitStateLocked(prev)
		c.mu.Unlock()
		return
	}
	seq := c.startLocked()
	c.emitStateLocked(prev)
	c.mu.Unlock()
	c.await(ctx, b, seq)
}

// cueCurrentLocked binds the current queue track paused.
func (c *Controller) cueCurrentLocked() {
	prev := c.stateLocked()
	c.seq++
	c.retryArmed = false
	c.setPlayingLocked(false)
	c.bindLocked()
	c.emitStateLocked(prev)
}

// bindLocked tears down the bound output and binds the current queue
// track. Listening time of the previous track is flushed first.
func (c *Controller) bindLocked() (*player.Binding, bool) {
	track := c.queue.Current()
	if track == nil {
		return nil, false
	}
	t := *track
	c.telemetry.Stop()
	c.gen++
	c.position = 0
	c.buffered = 0
	c.buffering = false
	c.duration = t.Duration

	b, err := c.res.Bind(t, &listener{c: c, gen: c.gen})
	if err != nil {
		c.binding = nil
		c.setPlayingLocked(false)
		c.media.Clear()
		c.failLocked("bind", t, err)
		c.emitTrackLocked(nil)
		return nil, false
	}
	c.binding = b
	c.media.Bind(t, c.queue.Context())
	c.emitTrackLocked(&t)
	c.emitPositionLocked()
	return b, true
}

// startLocked marks the bound track playing and returns the decision
// number the play result must match.
func (c *Controller) startLocked() uint64 {
	c.seq++
	c.retryArmed = false
	c.setPlayingLocked(true)
	return c.seq
}

// await waits for the output to start and applies the result unless
// another transport decision superseded it.
func (c *Controller) await(ctx context.Context, b *player.Binding, seq uint64) {
	err := b.Play(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if seq != c.seq {
		// A pause that could not abort the pending play wins.
		if err == nil && !c.playing && b == c.binding {
			c.res.Pause()
		}
		return
	}
	track := b.Track()
	if err == nil {
		c.power.Acquire()
		c.telemetry.Start(track)
		return
	}

	prev := c.stateLocked()
	c.setPlayingLocked(false)
	c.emitStateLocked(prev)
	switch {
	case errors.Is(err, player.ErrAborted), errors.Is(err, player.ErrStaleBinding),
		errors.Is(err, context.Canceled):
		c.log.Debug().Err(err).Str("track", track.ID).Msg("play superseded")
		return
	case errors.Is(err, player.ErrPlayRejected):
		if c.cfg.GestureRetry {
			c.retryArmed = true
		}
	}
	c.failLocked("play", track, err)
}

func (c *Controller) failLocked(op string, track playlist.Track, err error) {
	c.log.Warn().Err(err).Str("op", op).Str("track", track.ID).Msg("playback failed")
	e := ErrorEvent{Operation: op, TrackID: track.ID, Err: err}
	c.forEachSub(func(s *Subscription) { s.sendError(e) })
}

// setPlayingLocked records the play intent. Leaving the playing state
// flushes listening time and drops the wake lock.
func (c *Controller) setPlayingLocked(playing bool) {
	c.playing = playing
	if c.binding != nil {
		c.media.SetPlaying(playing)
	}
	if !playing {
		c.telemetry.Stop()
		c.power.Release()
	}
}

func (c *Controller) clearLocked() {
	c.seq++
	c.gen++
	c.retryArmed = false
	c.setPlayingLocked(false)
	c.res.Release()
	c.binding = nil
	c.queue.Clear()
	c.position = 0
	c.duration = 0
	c.buffered = 0
	c.buffering = false
	c.media.Clear()
	c.emitTrackLocked(nil)
}

// followCurrentLocked keeps the bound index in step with a queue edit that
// did not change the current track.
func (c *Controller) followCurrentLocked() {
	if c.bound != nil {
		c.boundIdx = c.queue.CurrentIndex()
	}
}

func (c *Controller) savePrefsLocked() {
	if c.store != nil {
		c.store.SavePreferences(c.prefs)
	}
}

func (c *Controller) stateLocked() State {
	switch {
	case c.binding == nil:
		return StateStopped
	case c.playing:
		return StatePlaying
	default:
		return StatePaused
	}
}

func (c *Controller) forEachSub(fn func(*Subscription)) {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for _, sub := range c.subs {
		fn(sub)
	}
}

func (c *Controller) emitStateLocked(prev State) {
	cur := c.stateLocked()
	if cur == prev {
		return
	}
	e := StateChange{Previous: prev, Current: cur}
	c.forEachSub(func(s *Subscription) { s.sendState(e) })
}

// emitTrackLocked publishes a change of bound track. Rebinding the same
// track at the same index is not a change.
func (c *Controller) emitTrackLocked(cur *playlist.Track) {
	idx := -1
	if cur != nil {
		idx = c.queue.CurrentIndex()
	}
	prev, prevIdx := c.bound, c.boundIdx
	if prev == nil && cur == nil {
		return
	}
	if prev != nil && cur != nil && prev.ID == cur.ID && prevIdx == idx {
		return
	}
	c.bound, c.boundIdx = cur, idx
	e := TrackChange{Previous: prev, Current: cur, PreviousIndex: prevIdx, Index: idx}
	c.forEachSub(func(s *Subscription) { s.sendTrack(e) })
}

func (c *Controller) emitQueueLocked() {
	e := QueueChange{Tracks: c.queue.Tracks(), Index: c.queue.CurrentIndex()}
	c.forEachSub(func(s *Subscription) { s.sendQueue(e) })
}

func (c *Controller) emitModeLocked() {
	c.media.SetModes(c.prefs.Repeat, c.prefs.Shuffle)
	e := ModeChange{
		Repeat:        c.prefs.Repeat,
		Shuffle:       c.prefs.Shuffle,
		AutoplayOnEnd: c.prefs.AutoplayOnEnd,
		PlayerMode:    c.prefs.PlayerMode,
	}
	c.forEachSub(func(s *Subscription) { s.sendMode(e) })
}

func (c *Controller) emitPositionLocked() {
	e := PositionChange{Position: c.position, Duration: c.duration}
	c.forEachSub(func(s *Subscription) { s.sendPosition(e) })
}

func (c *Controller) emitBufferLocked() {
	e := BufferChange{Buffered: c.buffered, Buffering: c.buffering}
	c.forEachSub(func(s *Subscription) { s.sendBuffer(e) })
}

// onEnded handles the end of the bound track: repeat replays it, otherwise
// playback moves on as Next does.
func (c *Controller) onEnded(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	ctx := context.Background()
	if c.prefs.Repeat {
		c.log.Debug().Msg("repeating track")
		c.playCurrent(ctx)
		return
	}
	c.mu.Unlock()
	c.Next(ctx)
}

// listener receives the signals of one binding.
type listener struct {
	c   *Controller
	gen uint64
}

func (l *listener) TimeUpdated(t time.Duration) {
	c := l.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if l.gen != c.gen {
		return
	}
	c.position = t
	c.media.UpdatePosition(t, c.duration, 1)
	c.emitPositionLocked()
}

func (l *listener) MetadataLoaded(d time.Duration) {
	c := l.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if l.gen != c.gen || d <= 0 {
		return
	}
	c.duration = d
	c.media.UpdatePosition(c.position, d, 1)
	c.emitPositionLocked()
}

func (l *listener) BufferedUpdated(end time.Duration) {
	c := l.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if l.gen != c.gen {
		return
	}
	c.buffered = end
	c.emitBufferLocked()
}

func (l *listener) BufferingChanged(buffering bool) {
	c := l.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if l.gen != c.gen {
		return
	}
	c.buffering = buffering
	c.emitBufferLocked()
}

func (l *listener) Ended() {
	l.c.onEnded(l.gen)
}

type noopWakeLock struct{}

func (noopWakeLock) Acquire() {}
func (noopWakeLock) Release() {}

type noopAccumulator struct{}

func (noopAccumulator) Start(playlist.Track) {}
func (noopAccumulator) Stop()                {}
