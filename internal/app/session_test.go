package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/wavestream/internal/config"
	"github.com/llehouerou/wavestream/internal/lastfm"
	"github.com/llehouerou/wavestream/internal/media"
	"github.com/llehouerou/wavestream/internal/notify"
	"github.com/llehouerou/wavestream/internal/playback"
	"github.com/llehouerou/wavestream/internal/player"
	"github.com/llehouerou/wavestream/internal/playlist"
	"github.com/llehouerou/wavestream/internal/power"
	"github.com/llehouerou/wavestream/internal/state"
)

var tracks = []playlist.Track{
	{ID: "a", Title: "Alpha", Uploader: "Ann", StreamURL: "http://x/a", Duration: 3 * time.Minute},
	{ID: "b", Title: "Beta", Uploader: "Bob", StreamURL: "http://x/b", Duration: 4 * time.Minute},
}

type listen struct {
	trackID string
	elapsed time.Duration
}

type fakeBackend struct {
	mu       sync.Mutex
	played   []string
	listened []listen
	err      error
}

func (f *fakeBackend) Tracks(context.Context) ([]playlist.Track, error) {
	if f.err != nil {
		return nil, f.err
	}
	return tracks, nil
}

func (f *fakeBackend) Playlist(_ context.Context, id string) (*playlist.Context, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &playlist.Context{ID: id, Name: "Mix", Tracks: tracks}, nil
}

func (f *fakeBackend) RecordPlay(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, id)
	return nil
}

func (f *fakeBackend) ReportListeningTime(_ context.Context, track playlist.Track, elapsed time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listened = append(f.listened, listen{track.ID, elapsed})
	return nil
}

func (f *fakeBackend) Played() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.played...)
}

func (f *fakeBackend) Listened() []listen {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]listen(nil), f.listened...)
}

type fakeLastfm struct {
	mu         sync.Mutex
	nowPlaying []string
	scrobbles  []string
}

func (f *fakeLastfm) UpdateNowPlaying(t lastfm.ScrobbleTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nowPlaying = append(f.nowPlaying, t.Track)
	return nil
}

func (f *fakeLastfm) Scrobble(t lastfm.ScrobbleTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrobbles = append(f.scrobbles, t.Track)
	return nil
}

func (f *fakeLastfm) NowPlaying() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.nowPlaying...)
}

func (f *fakeLastfm) Scrobbles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.scrobbles...)
}

type fakeNotifier struct {
	mu     sync.Mutex
	titles []string
	closed int
}

func (f *fakeNotifier) Notify(n notify.Notification) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = append(f.titles, n.Title)
	return 7, nil
}

func (f *fakeNotifier) Close(uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeNotifier) Titles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.titles...)
}

type harness struct {
	session  *Session
	backend  *fakeBackend
	opener   *player.MockOpener
	store    *state.Mock
	media    *media.Recorder
	inh      *power.MockInhibitor
	lastfm   *fakeLastfm
	notifier *fakeNotifier
	clock    *clock.Mock
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Playback.SeekOffset = 19 * time.Second
	cfg.Telemetry.Interval = 5 * time.Second
	cfg.Telemetry.MinFlush = 5 * time.Second
	cfg.Telemetry.Timeout = time.Second
	cfg.Notifications.TimeoutMs = 5000
	return cfg
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		backend:  &fakeBackend{},
		opener:   player.NewMockOpener(),
		store:    state.NewMock(),
		media:    &media.Recorder{},
		inh:      &power.MockInhibitor{},
		lastfm:   &fakeLastfm{},
		notifier: &fakeNotifier{},
		clock:    clock.NewMock(),
	}
	s, err := New(testConfig(), Deps{
		Backend:   h.backend,
		Opener:    h.opener,
		Store:     h.store,
		Media:     h.media,
		Inhibitor: h.inh,
		Notifier:  h.notifier,
		Lastfm:    h.lastfm,
		Clock:     h.clock,
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	h.session = s
	t.Cleanup(func() { _ = s.Close() })
	return h
}

func TestNew_RequiresBackendAndOpener(t *testing.T) {
	_, err := New(testConfig(), Deps{Opener: player.NewMockOpener()})
	require.Error(t, err)

	_, err = New(testConfig(), Deps{Backend: &fakeBackend{}})
	require.Error(t, err)
}

func TestSession_PlayPlaylist(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.session.PlayPlaylist(context.Background(), "p1", 1))

	assert.Equal(t, []string{"p1"}, h.backend.Played())
	snap := h.session.Controller().Snapshot()
	require.NotNil(t, snap.Track)
	assert.Equal(t, "b", snap.Track.ID)
	assert.True(t, snap.Playing)
	require.NotNil(t, snap.Context)
	assert.Equal(t, "Mix", snap.Context.Name)
	assert.Equal(t, 1, h.inh.Held())
	assert.Equal(t, media.StatusPlaying, h.media.Status())
}

func TestSession_PlayLibraryDoesNotRecordPlay(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.session.PlayLibrary(context.Background(), 0))

	assert.Empty(t, h.backend.Played())
	assert.Equal(t, playback.StatePlaying, h.session.Controller().Snapshot().State)
}

func TestSession_LoadFailure(t *testing.T) {
	h := newHarness(t)
	h.backend.err = errors.New("offline")

	require.Error(t, h.session.PlayPlaylist(context.Background(), "p1", 0))
	require.Error(t, h.session.PlayLibrary(context.Background(), 0))

	assert.Equal(t, playback.StateStopped, h.session.Controller().Snapshot().State)
}

func TestSession_AnnouncesPlayingTrack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.session.PlayPlaylist(ctx, "p1", 0))
	require.Eventually(t, func() bool { return len(h.lastfm.NowPlaying()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"Alpha"}, h.lastfm.NowPlaying())
	require.Eventually(t, func() bool { return len(h.notifier.Titles()) == 1 }, time.Second, time.Millisecond)

	h.session.Controller().Pause()
	h.session.Controller().Play(ctx)
	h.session.Controller().Next(ctx)

	require.Eventually(t, func() bool { return len(h.lastfm.NowPlaying()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"Alpha", "Beta"}, h.lastfm.NowPlaying(), "resuming the same track is not a new play")
	require.Eventually(t, func() bool { return len(h.notifier.Titles()) == 2 }, time.Second, time.Millisecond)
}

func TestSession_CloseFlushesListeningTime(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.session.PlayPlaylist(context.Background(), "p1", 0))
	h.clock.Add(3 * time.Second)

	require.NoError(t, h.session.Close())
	require.NoError(t, h.session.Close())

	assert.Equal(t, []listen{{"a", 3 * time.Second}}, h.backend.Listened())
	assert.True(t, h.store.IsClosed())
	assert.True(t, h.media.Closed())
	assert.Equal(t, 0, h.inh.Held())
}

func TestSession_ScrobblesFromTelemetry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.session.PlayPlaylist(ctx, "p1", 0))
	require.Eventually(t, func() bool { return len(h.lastfm.NowPlaying()) == 1 }, time.Second, time.Millisecond)
	// Alpha lasts 3 minutes: 90 seconds of listening scrobble it.
	h.clock.Add(80 * time.Second)
	h.session.Controller().Pause()
	h.session.Controller().Play(ctx)
	h.clock.Add(10 * time.Second)
	require.NoError(t, h.session.Close())

	assert.Equal(t, []string{"Alpha"}, h.lastfm.Scrobbles())
	var total time.Duration
	for _, l := range h.backend.Listened() {
		total += l.elapsed
	}
	assert.Equal(t, 90*time.Second, total)
}

func TestSession_IDIsUnique(t *testing.T) {
	a := newHarness(t)
	b := newHarness(t)

	assert.NotEqual(t, a.session.ID(), b.session.ID())
}
