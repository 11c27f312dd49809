package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/llehouerou/wavestream/internal/playlist"
)

type recorder struct {
	mu        sync.Mutex
	times     []time.Duration
	durations []time.Duration
	buffered  []time.Duration
	buffering []bool
	ended     int
}

func (r *recorder) TimeUpdated(t time.Duration) {
	r.mu.Lock()
	r.times = append(r.times, t)
	r.mu.Unlock()
}

func (r *recorder) MetadataLoaded(d time.Duration) {
	r.mu.Lock()
	r.durations = append(r.durations, d)
	r.mu.Unlock()
}

func (r *recorder) BufferedUpdated(end time.Duration) {
	r.mu.Lock()
	r.buffered = append(r.buffered, end)
	r.mu.Unlock()
}

func (r *recorder) BufferingChanged(b bool) {
	r.mu.Lock()
	r.buffering = append(r.buffering, b)
	r.mu.Unlock()
}

func (r *recorder) Ended() {
	r.mu.Lock()
	r.ended++
	r.mu.Unlock()
}

func (r *recorder) endedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

func newTestResource() (*Resource, *MockOpener) {
	opener := NewMockOpener()
	return NewResource(opener, 0.8, zerolog.Nop()), opener
}

func TestResource_Bind_TearsDownPrevious(t *testing.T) {
	res, opener := newTestResource()
	first, second := &recorder{}, &recorder{}

	if _, err := res.Bind(playlist.Track{ID: "a"}, first); err != nil {
		t.Fatalf("Bind(a) error = %v", err)
	}
	outA := opener.Last()
	if _, err := res.Bind(playlist.Track{ID: "b"}, second); err != nil {
		t.Fatalf("Bind(b) error = %v", err)
	}

	if !outA.Closed() {
		t.Error("previous output should be closed")
	}
	if outA.PauseCalls() != 1 {
		t.Errorf("previous output PauseCalls() = %d, want 1", outA.PauseCalls())
	}

	outA.EmitEnded()
	outA.EmitTime(3 * time.Second)

	if first.endedCount() != 0 || len(first.times) != 0 {
		t.Error("detached output should not reach its old listener")
	}
	if second.endedCount() != 0 {
		t.Error("detached output should not reach the new listener")
	}

	opener.Last().EmitEnded()
	if second.endedCount() != 1 {
		t.Errorf("live output ended count = %d, want 1", second.endedCount())
	}
}

func TestResource_Bind_AppliesVolume(t *testing.T) {
	res, opener := newTestResource()

	if _, err := res.Bind(playlist.Track{ID: "a"}, &recorder{}); err != nil {
		t.Fatal(err)
	}

	if got := opener.Last().Volume(); got != 0.8 {
		t.Errorf("output Volume() = %v, want 0.8", got)
	}

	res.SetVolume(1.7)
	if got := opener.Last().Volume(); got != 1 {
		t.Errorf("output Volume() = %v, want clamped 1", got)
	}
}

func TestResource_Bind_OpenErrorLeavesUnbound(t *testing.T) {
	res, opener := newTestResource()
	if _, err := res.Bind(playlist.Track{ID: "a"}, &recorder{}); err != nil {
		t.Fatal(err)
	}
	outA := opener.Last()
	opener.SetOpenError(ErrUnsupportedSource)

	b, err := res.Bind(playlist.Track{ID: "b"}, &recorder{})

	if !errors.Is(err, ErrUnsupportedSource) {
		t.Errorf("Bind() error = %v, want ErrUnsupportedSource", err)
	}
	if b != nil {
		t.Error("Bind() should return nil binding on error")
	}
	if !outA.Closed() {
		t.Error("previous output should be released even when open fails")
	}
	if res.Current() != nil {
		t.Error("resource should be unbound")
	}
}

func TestResource_UnboundOpsAreNoops(t *testing.T) {
	res, _ := newTestResource()

	res.Pause()
	res.Seek(10 * time.Second)
	res.Release()

	if res.Position() != 0 {
		t.Errorf("Position() = %v, want 0", res.Position())
	}
}

func TestResource_Seek_ClampsNegative(t *testing.T) {
	res, opener := newTestResource()
	if _, err := res.Bind(playlist.Track{ID: "a"}, &recorder{}); err != nil {
		t.Fatal(err)
	}

	res.Seek(-5 * time.Second)

	seeks := opener.Last().SeekCalls()
	if len(seeks) != 1 || seeks[0] != 0 {
		t.Errorf("SeekCalls() = %v, want [0]", seeks)
	}
}

func TestBinding_Play_Stale(t *testing.T) {
	res, _ := newTestResource()
	b, err := res.Bind(playlist.Track{ID: "a"}, &recorder{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := res.Bind(playlist.Track{ID: "b"}, &recorder{}); err != nil {
		t.Fatal(err)
	}

	if err := b.Play(context.Background()); !errors.Is(err, ErrStaleBinding) {
		t.Errorf("Play() on replaced binding error = %v, want ErrStaleBinding", err)
	}
	if b.Live() {
		t.Error("replaced binding should not be live")
	}
}

func TestBinding_Play_AbortedByRebind(t *testing.T) {
	res, opener := newTestResource()
	opener.SetBlockPlay(true)
	b, err := res.Bind(playlist.Track{ID: "a"}, &recorder{})
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- b.Play(context.Background()) }()

	if _, err := res.Bind(playlist.Track{ID: "b"}, &recorder{}); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err == nil {
			t.Error("Play() should fail once its binding is torn down")
		}
	case <-time.After(time.Second):
		t.Fatal("pending Play() was not released by teardown")
	}
}

func TestResource_Release(t *testing.T) {
	res, opener := newTestResource()
	l := &recorder{}
	if _, err := res.Bind(playlist.Track{ID: "a"}, l); err != nil {
		t.Fatal(err)
	}
	out := opener.Last()

	res.Release()
	out.EmitEnded()

	if !out.Closed() {
		t.Error("Release() should close the output")
	}
	if l.endedCount() != 0 {
		t.Error("released output should not deliver signals")
	}
}

func TestLevelToVolume(t *testing.T) {
	tests := []struct {
		level float64
		want  float64
	}{
		{0, -10},
		{-1, -10},
		{0.25, -2},
		{0.5, -1},
		{1, 0},
		{2, 0},
	}

	for _, tt := range tests {
		if got := levelToVolume(tt.level); got != tt.want {
			t.Errorf("levelToVolume(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
