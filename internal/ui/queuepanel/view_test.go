package queuepanel

import (
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/wavestream/internal/playback"
	"github.com/llehouerou/wavestream/internal/playlist"
	"github.com/llehouerou/wavestream/internal/state"
)

// stripANSI removes ANSI escape codes from a string for easier testing.
func stripANSI(s string) string {
	re := regexp.MustCompile(`\x1b\[[0-9;]*m`)
	return re.ReplaceAllString(s, "")
}

func testTrack(title, uploader string) playlist.Track {
	return playlist.Track{ID: strings.ToLower(title), Title: title, Uploader: uploader, Duration: 3 * time.Minute}
}

func newTestModel(index int, tracks ...playlist.Track) Model {
	m := New()
	m.SetSize(60, 10)
	m.SetFocused(true)
	m.SetQueue(playback.Snapshot{Tracks: tracks, Index: index})
	return m
}

func key(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "delete":
		return tea.KeyMsg{Type: tea.KeyDelete}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func TestView_EmptyQueue(t *testing.T) {
	m := newTestModel(-1)

	stripped := stripANSI(m.View())
	if !strings.Contains(stripped, "Queue (0/0)") {
		t.Errorf("empty queue should show 'Queue (0/0)', got: %s", stripped)
	}
}

func TestView_ZeroSize(t *testing.T) {
	if got := New().View(); got != "" {
		t.Errorf("unsized panel should render nothing, got %q", got)
	}
}

func TestView_MarksPlayingTrack(t *testing.T) {
	m := newTestModel(1, testTrack("One", "A"), testTrack("Two", "B"))

	stripped := stripANSI(m.View())
	if !strings.Contains(stripped, "Queue (2/2)") {
		t.Errorf("header should show position, got: %s", stripped)
	}
	for line := range strings.SplitSeq(stripped, "\n") {
		if strings.Contains(line, "Two") && !strings.Contains(line, playingSymbol) {
			t.Errorf("playing track should carry the marker: %q", line)
		}
		if strings.Contains(line, "One") && strings.Contains(line, playingSymbol) {
			t.Errorf("other tracks should not carry the marker: %q", line)
		}
	}
	if !strings.Contains(stripped, "3:00") {
		t.Errorf("track duration should be shown, got: %s", stripped)
	}
}

func TestView_ModeIcons(t *testing.T) {
	m := New()
	m.SetSize(60, 10)
	m.SetQueue(playback.Snapshot{
		Tracks:      []playlist.Track{testTrack("One", "A")},
		Shuffled:    true,
		Preferences: state.Preferences{Repeat: true},
	})
	if !m.shuffle || !m.repeat {
		t.Fatal("modes should be mirrored from the snapshot")
	}
	if !strings.Contains(stripANSI(m.View()), "Queue (1/1)") {
		t.Error("header should still render with mode icons")
	}
}

func TestUpdate_CursorMovement(t *testing.T) {
	m := newTestModel(0, testTrack("One", "A"), testTrack("Two", "B"), testTrack("Three", "C"))

	m, _ = m.Update(key("j"))
	m, _ = m.Update(key("j"))
	m, _ = m.Update(key("j"))
	if m.Cursor() != 2 {
		t.Errorf("cursor should stop at the last row, got %d", m.Cursor())
	}
	m, _ = m.Update(key("g"))
	if m.Cursor() != 0 {
		t.Errorf("g should jump to the first row, got %d", m.Cursor())
	}
	m, _ = m.Update(key("G"))
	if m.Cursor() != 2 {
		t.Errorf("G should jump to the last row, got %d", m.Cursor())
	}
}

func TestUpdate_IgnoredWhenUnfocused(t *testing.T) {
	m := newTestModel(0, testTrack("One", "A"), testTrack("Two", "B"))
	m.SetFocused(false)

	m, cmd := m.Update(key("j"))
	if m.Cursor() != 0 || cmd != nil {
		t.Error("unfocused panel should ignore keys")
	}
}

func TestUpdate_Requests(t *testing.T) {
	tracks := []playlist.Track{testTrack("One", "A"), testTrack("Two", "B"), testTrack("Three", "C")}

	tests := []struct {
		name string
		keys []string
		want tea.Msg
	}{
		{"select", []string{"j", "enter"}, JumpToTrackMsg{Index: 1}},
		{"delete", []string{"d"}, RemoveTrackMsg{Index: 0}},
		{"move down", []string{"J"}, MoveTrackMsg{From: 0, To: 1}},
		{"move up", []string{"G", "K"}, MoveTrackMsg{From: 2, To: 1}},
		{"clear", []string{"c"}, ClearQueueMsg{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(0, tracks...)
			var cmd tea.Cmd
			for _, k := range tt.keys {
				m, cmd = m.Update(key(k))
			}
			if cmd == nil {
				t.Fatal("expected a command")
			}
			if got := cmd(); got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestUpdate_EmptyQueueSendsNothing(t *testing.T) {
	m := newTestModel(-1)
	for _, k := range []string{"enter", "d", "J", "K", "c"} {
		if _, cmd := m.Update(key(k)); cmd != nil {
			t.Errorf("%q on an empty queue should do nothing", k)
		}
	}
}

func TestSetQueue_ClampsCursorAndScrolls(t *testing.T) {
	var tracks []playlist.Track
	for i := range 30 {
		tracks = append(tracks, testTrack(fmt.Sprintf("T%02d", i), "U"))
	}
	m := newTestModel(0, tracks...)
	m, _ = m.Update(key("G"))
	if m.offset == 0 {
		t.Error("jumping to the end should scroll")
	}

	m.SetQueue(playback.Snapshot{Tracks: tracks[:3], Index: 0})
	if m.Cursor() != 2 || m.offset != 0 {
		t.Errorf("cursor/offset = %d/%d after shrinking, want 2/0", m.Cursor(), m.offset)
	}
}

func TestHandles(t *testing.T) {
	if !Handles("enter") || !Handles("d") {
		t.Error("queue keys should be handled")
	}
	if Handles(" ") {
		t.Error("transport keys belong to the player")
	}
}
