package lastfm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/wavestream/internal/playlist"
)

type fakeAPI struct {
	mu         sync.Mutex
	nowPlaying []ScrobbleTrack
	scrobbles  []ScrobbleTrack
	err        error
}

func (f *fakeAPI) UpdateNowPlaying(t ScrobbleTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nowPlaying = append(f.nowPlaying, t)
	return f.err
}

func (f *fakeAPI) Scrobble(t ScrobbleTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrobbles = append(f.scrobbles, t)
	return f.err
}

var song = playlist.Track{ID: "s1", Title: "Song", Uploader: "Someone", Duration: 3 * time.Minute}

func newScrobbler() (*Scrobbler, *fakeAPI, *clock.Mock) {
	api := &fakeAPI{}
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	return NewScrobbler(api, clk, zerolog.Nop()), api, clk
}

func TestThreshold(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     time.Duration
		ok       bool
	}{
		{"too short", 30 * time.Second, 0, false},
		{"unknown", 0, 0, false},
		{"half", 3 * time.Minute, 90 * time.Second, true},
		{"capped", 20 * time.Minute, 4 * time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Threshold(tt.duration)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScrobbler_NowPlaying(t *testing.T) {
	s, api, _ := newScrobbler()

	require.NoError(t, s.NowPlaying(context.Background(), song))

	require.Len(t, api.nowPlaying, 1)
	assert.Equal(t, "Someone", api.nowPlaying[0].Artist)
	assert.Equal(t, "Song", api.nowPlaying[0].Track)
	assert.Equal(t, 3*time.Minute, api.nowPlaying[0].Duration)
}

func TestScrobbler_ScrobblesOnceAtThreshold(t *testing.T) {
	s, api, clk := newScrobbler()
	ctx := context.Background()
	started := clk.Now()
	require.NoError(t, s.NowPlaying(ctx, song))

	for range 17 {
		clk.Add(5 * time.Second)
		require.NoError(t, s.ReportListeningTime(ctx, song, 5*time.Second))
	}
	assert.Empty(t, api.scrobbles, "85s is below the 90s threshold")

	clk.Add(5 * time.Second)
	require.NoError(t, s.ReportListeningTime(ctx, song, 5*time.Second))
	require.Len(t, api.scrobbles, 1)
	assert.Equal(t, started, api.scrobbles[0].Timestamp)

	for range 10 {
		require.NoError(t, s.ReportListeningTime(ctx, song, 5*time.Second))
	}
	assert.Len(t, api.scrobbles, 1)
}

func TestScrobbler_NewPlayResets(t *testing.T) {
	s, api, _ := newScrobbler()
	ctx := context.Background()

	require.NoError(t, s.NowPlaying(ctx, song))
	require.NoError(t, s.ReportListeningTime(ctx, song, 2*time.Minute))
	require.NoError(t, s.NowPlaying(ctx, song))
	require.NoError(t, s.ReportListeningTime(ctx, song, time.Minute))
	assert.Len(t, api.scrobbles, 1)

	require.NoError(t, s.ReportListeningTime(ctx, song, time.Minute))
	assert.Len(t, api.scrobbles, 2)
}

func TestScrobbler_ShortTrackNeverScrobbled(t *testing.T) {
	s, api, _ := newScrobbler()
	short := playlist.Track{ID: "s2", Title: "Jingle", Duration: 20 * time.Second}

	require.NoError(t, s.ReportListeningTime(context.Background(), short, 20*time.Second))

	assert.Empty(t, api.scrobbles)
}

func TestScrobbler_UnannouncedTrack(t *testing.T) {
	s, api, clk := newScrobbler()

	require.NoError(t, s.ReportListeningTime(context.Background(), song, 2*time.Minute))

	require.Len(t, api.scrobbles, 1)
	assert.Equal(t, clk.Now().Add(-2*time.Minute), api.scrobbles[0].Timestamp)
}

func TestScrobbler_LateReportForPreviousTrackIgnored(t *testing.T) {
	s, api, clk := newScrobbler()
	ctx := context.Background()
	next := playlist.Track{ID: "s3", Title: "Next", Uploader: "Other", Duration: 3 * time.Minute}

	require.NoError(t, s.NowPlaying(ctx, song))
	require.NoError(t, s.ReportListeningTime(ctx, song, time.Minute))
	clk.Add(time.Minute)
	started := clk.Now()
	require.NoError(t, s.NowPlaying(ctx, next))

	require.NoError(t, s.ReportListeningTime(ctx, song, 40*time.Second))
	assert.Empty(t, api.scrobbles, "the flush for the replaced play must not be scrobbled")

	require.NoError(t, s.ReportListeningTime(ctx, next, 90*time.Second))
	require.Len(t, api.scrobbles, 1)
	assert.Equal(t, "Next", api.scrobbles[0].Track)
	assert.Equal(t, started, api.scrobbles[0].Timestamp)
}

func TestScrobbler_ErrorNotRetried(t *testing.T) {
	s, api, _ := newScrobbler()
	api.err = errors.New("boom")
	ctx := context.Background()

	require.Error(t, s.NowPlaying(ctx, song))
	require.Error(t, s.ReportListeningTime(ctx, song, 2*time.Minute))
	require.NoError(t, s.ReportListeningTime(ctx, song, time.Minute))

	assert.Len(t, api.scrobbles, 1)
}

func TestClient_RequiresSession(t *testing.T) {
	c := New("key", "secret")

	assert.False(t, c.IsAuthenticated())
	assert.ErrorIs(t, c.Scrobble(TrackFrom(song)), ErrNotAuthenticated)
	assert.ErrorIs(t, c.UpdateNowPlaying(TrackFrom(song)), ErrNotAuthenticated)

	c.SetSessionKey("sk")
	assert.True(t, c.IsAuthenticated())
	assert.Equal(t, "sk", c.SessionKey())
}

func TestClient_AuthURL(t *testing.T) {
	c := New("key", "secret")

	assert.Equal(t, "https://www.last.fm/api/auth/?api_key=key&token=tok", c.GetAuthURL("tok", ""))
	assert.Equal(t,
		"https://www.last.fm/api/auth/?api_key=key&token=tok&cb=http%3A%2F%2Flocalhost%3A9847%2Fcallback",
		c.GetAuthURL("tok", "http://localhost:9847/callback"))
}

func TestParams(t *testing.T) {
	st := TrackFrom(song)
	st.Timestamp = time.Unix(1700000000, 0)

	p := st.params(true)
	assert.Equal(t, "Someone", p["artist"])
	assert.Equal(t, "Song", p["track"])
	assert.Equal(t, int64(1700000000), p["timestamp"])
	assert.Equal(t, 180, p["duration"])
	assert.NotContains(t, p, "album")

	assert.NotContains(t, st.params(false), "timestamp")
}
