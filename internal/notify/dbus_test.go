//go:build linux

package notify

import (
	"errors"
	"os"
	"testing"

	"github.com/godbus/dbus/v5"

	"github.com/llehouerou/wavestream/internal/playlist"
)

type recordedCall struct {
	method string
	args   []any
}

// fakeServer answers Notify calls with increasing ids.
type fakeServer struct {
	calls  []recordedCall
	err    error
	nextID uint32
}

func (f *fakeServer) call(method string, args ...any) *dbus.Call {
	f.calls = append(f.calls, recordedCall{method: method, args: args})
	if f.err != nil {
		return &dbus.Call{Err: f.err}
	}
	if method != notifyMethod {
		return &dbus.Call{}
	}
	f.nextID++
	return &dbus.Call{Body: []any{f.nextID}}
}

func TestBusNotifier_NotifyArgs(t *testing.T) {
	srv := &fakeServer{}
	b := newBusNotifier("tunes", srv.call)

	n := TrackNotification(playlist.Track{ID: "a", Title: "Song", Uploader: "Someone"}, "/cache/a.jpg")
	n.Timeout = 4000
	n.ReplacesID = 3

	id, err := b.Notify(n)
	if err != nil {
		t.Fatalf("Notify() error: %v", err)
	}
	if id != 1 {
		t.Errorf("Notify() id = %d, want 1", id)
	}
	if len(srv.calls) != 1 || srv.calls[0].method != notifyMethod {
		t.Fatalf("calls = %+v, want one Notify", srv.calls)
	}

	args := srv.calls[0].args
	if len(args) != 8 {
		t.Fatalf("Notify got %d args, want 8", len(args))
	}
	want := []any{"tunes", uint32(3), "/cache/a.jpg", "Song", "Someone"}
	for i, w := range want {
		if args[i] != w {
			t.Errorf("arg %d = %v, want %v", i, args[i], w)
		}
	}
	if args[7] != int32(4000) {
		t.Errorf("expire_timeout = %v, want 4000", args[7])
	}

	hints, ok := args[6].(map[string]dbus.Variant)
	if !ok {
		t.Fatalf("hints type = %T", args[6])
	}
	wantHints := map[string]any{
		"urgency":        byte(UrgencyLow),
		"desktop-entry":  "tunes",
		"image-path":     "/cache/a.jpg",
		"category":       TrackCategory,
		"transient":      true,
		"suppress-sound": true,
	}
	for k, w := range wantHints {
		v, ok := hints[k]
		if !ok {
			t.Errorf("missing hint %q", k)
			continue
		}
		if v.Value() != w {
			t.Errorf("hint %q = %v, want %v", k, v.Value(), w)
		}
	}
}

func TestBusNotifier_OmitsEmptyHints(t *testing.T) {
	srv := &fakeServer{}
	b := newBusNotifier("", srv.call)

	if _, err := b.Notify(Notification{Title: "plain"}); err != nil {
		t.Fatalf("Notify() error: %v", err)
	}

	args := srv.calls[0].args
	if args[0] != defaultAppName {
		t.Errorf("app_name = %v, want %q", args[0], defaultAppName)
	}
	hints := args[6].(map[string]dbus.Variant)
	for _, k := range []string{"image-path", "category", "transient", "suppress-sound"} {
		if _, ok := hints[k]; ok {
			t.Errorf("unexpected hint %q", k)
		}
	}
}

func TestBusNotifier_Close(t *testing.T) {
	srv := &fakeServer{}
	b := newBusNotifier("tunes", srv.call)

	if err := b.Close(9); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if len(srv.calls) != 1 || srv.calls[0].method != closeMethod || srv.calls[0].args[0] != uint32(9) {
		t.Errorf("calls = %+v, want CloseNotification(9)", srv.calls)
	}
}

func TestBusNotifier_Errors(t *testing.T) {
	srv := &fakeServer{err: errors.New("no server")}
	b := newBusNotifier("tunes", srv.call)

	if id, err := b.Notify(Notification{Title: "x"}); err == nil || id != 0 {
		t.Errorf("Notify() = (%d, %v), want (0, error)", id, err)
	}
	if err := b.Close(1); err == nil {
		t.Error("Close() should fail when the server call fails")
	}
}

func TestNowPlaying_OverBus(t *testing.T) {
	srv := &fakeServer{}
	np := NewNowPlaying(newBusNotifier("tunes", srv.call), nil, 2000)

	if err := np.Show(t.Context(), playlist.Track{ID: "a", Title: "First"}); err != nil {
		t.Fatalf("Show() error: %v", err)
	}
	if err := np.Show(t.Context(), playlist.Track{ID: "b", Title: "Second"}); err != nil {
		t.Fatalf("Show() error: %v", err)
	}
	if err := np.Dismiss(); err != nil {
		t.Fatalf("Dismiss() error: %v", err)
	}

	if len(srv.calls) != 3 {
		t.Fatalf("calls = %d, want 3", len(srv.calls))
	}
	if got := srv.calls[0].args[2]; got != "audio-x-generic" {
		t.Errorf("icon without artwork = %v, want themed icon", got)
	}
	if got := srv.calls[1].args[1]; got != uint32(1) {
		t.Errorf("second Show replaces_id = %v, want 1", got)
	}
	if got := srv.calls[2].args[0]; got != uint32(2) {
		t.Errorf("Dismiss closed %v, want 2", got)
	}
}

func TestNew_SessionBus(t *testing.T) {
	if os.Getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		t.Skip("no D-Bus session available")
	}

	notifier, err := New("wavestream")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if notifier == nil {
		t.Fatal("New() returned nil notifier")
	}
}
