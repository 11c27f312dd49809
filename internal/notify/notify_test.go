package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/llehouerou/wavestream/internal/playlist"
)

func TestUrgencyValues(t *testing.T) {
	// Verify urgency constants match D-Bus spec
	if UrgencyLow != 0 {
		t.Errorf("UrgencyLow = %d, want 0", UrgencyLow)
	}
	if UrgencyNormal != 1 {
		t.Errorf("UrgencyNormal = %d, want 1", UrgencyNormal)
	}
	if UrgencyCritical != 2 {
		t.Errorf("UrgencyCritical = %d, want 2", UrgencyCritical)
	}
}

func TestNotificationZeroValue(t *testing.T) {
	var n Notification
	if n.Urgency != UrgencyLow {
		t.Errorf("zero value Urgency = %d, want UrgencyLow (0)", n.Urgency)
	}
	if n.Timeout != 0 {
		t.Error("zero value Timeout should be 0 (never expire)")
	}
	if n.ReplacesID != 0 {
		t.Error("zero value ReplacesID should be 0 (new notification)")
	}
}

type fakeNotifier struct {
	sent   []Notification
	closed []uint32
	nextID uint32
}

func (f *fakeNotifier) Notify(n Notification) (uint32, error) {
	f.sent = append(f.sent, n)
	if n.ReplacesID != 0 {
		return n.ReplacesID, nil
	}
	f.nextID++
	return f.nextID, nil
}

func (f *fakeNotifier) Close(id uint32) error {
	f.closed = append(f.closed, id)
	return nil
}

func TestNowPlaying_ReplacesPrevious(t *testing.T) {
	fake := &fakeNotifier{}
	np := NewNowPlaying(fake, nil, 5000)
	ctx := context.Background()

	if err := np.Show(ctx, playlist.Track{ID: "a", Title: "First", Uploader: "Up"}); err != nil {
		t.Fatalf("Show() error: %v", err)
	}
	if err := np.Show(ctx, playlist.Track{ID: "b"}); err != nil {
		t.Fatalf("Show() error: %v", err)
	}

	if len(fake.sent) != 2 {
		t.Fatalf("sent %d notifications, want 2", len(fake.sent))
	}
	if fake.sent[0].Title != "First" || fake.sent[0].Body != "Up" || fake.sent[0].ReplacesID != 0 {
		t.Errorf("first notification = %+v", fake.sent[0])
	}
	if fake.sent[1].Title != "b" {
		t.Errorf("untitled track title = %q, want id", fake.sent[1].Title)
	}
	if fake.sent[1].ReplacesID != 1 {
		t.Errorf("ReplacesID = %d, want 1", fake.sent[1].ReplacesID)
	}
	if fake.sent[1].Timeout != 5000 {
		t.Errorf("Timeout = %d, want 5000", fake.sent[1].Timeout)
	}

	if err := np.Dismiss(); err != nil {
		t.Fatalf("Dismiss() error: %v", err)
	}
	if err := np.Dismiss(); err != nil {
		t.Fatalf("second Dismiss() error: %v", err)
	}
	if len(fake.closed) != 1 || fake.closed[0] != 1 {
		t.Errorf("closed = %v, want [1]", fake.closed)
	}
}

func TestThumbnailCache(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("jpeg"))
	}))
	defer srv.Close()

	cache := NewThumbnailCache(t.TempDir(), srv.Client(), zerolog.Nop())
	ctx := context.Background()
	track := playlist.Track{ID: "a", ThumbnailURL: srv.URL + "/a.jpg"}

	path := cache.Path(ctx, track)
	if path == "" {
		t.Fatal("Path() returned empty path")
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "jpeg" {
		t.Fatalf("cached file = %q, %v", data, err)
	}
	if again := cache.Path(ctx, track); again != path {
		t.Errorf("second Path() = %q, want %q", again, path)
	}
	if hits != 1 {
		t.Errorf("server hits = %d, want 1", hits)
	}

	if got := cache.Path(ctx, playlist.Track{ID: "b", ThumbnailURL: srv.URL + "/missing.jpg"}); got != "" {
		t.Errorf("missing thumbnail path = %q, want empty", got)
	}
	if got := cache.Path(ctx, playlist.Track{ID: "c"}); got != "" {
		t.Errorf("no thumbnail path = %q, want empty", got)
	}
}

func TestTrackNotification(t *testing.T) {
	tests := []struct {
		name      string
		track     playlist.Track
		artwork   string
		wantTitle string
		wantIcon  string
		wantImage string
	}{
		{"with artwork", playlist.Track{ID: "a", Title: "Song", Uploader: "Up"}, "/tmp/a.jpg", "Song", "/tmp/a.jpg", "/tmp/a.jpg"},
		{"themed icon", playlist.Track{ID: "a", Title: "Song"}, "", "Song", "audio-x-generic", ""},
		{"untitled", playlist.Track{ID: "xyz"}, "", "xyz", "audio-x-generic", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := TrackNotification(tt.track, tt.artwork)
			if n.Title != tt.wantTitle || n.Icon != tt.wantIcon || n.Image != tt.wantImage {
				t.Errorf("TrackNotification() = %+v, want title %q icon %q image %q",
					n, tt.wantTitle, tt.wantIcon, tt.wantImage)
			}
			if n.Body != tt.track.Uploader {
				t.Errorf("Body = %q, want %q", n.Body, tt.track.Uploader)
			}
			if n.Category != TrackCategory || !n.Transient || n.Urgency != UrgencyLow {
				t.Errorf("TrackNotification() hints = %+v", n)
			}
		})
	}
}

func TestDisabled(t *testing.T) {
	var n Notifier = Disabled{}
	id, err := n.Notify(Notification{Title: "x"})
	if id != 0 || err != nil {
		t.Errorf("Notify() = (%d, %v), want (0, nil)", id, err)
	}
	if err := n.Close(1); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}
