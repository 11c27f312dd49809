// Package queuepanel renders the play queue and turns queue keys into
// controller requests.
package queuepanel

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/wavestream/internal/keymap"
	"github.com/llehouerou/wavestream/internal/playback"
	"github.com/llehouerou/wavestream/internal/playlist"
	"github.com/llehouerou/wavestream/internal/ui"
)

// JumpToTrackMsg is sent when the user selects a track to jump to.
type JumpToTrackMsg struct {
	Index int
}

// RemoveTrackMsg asks for the track at Index to leave the queue.
type RemoveTrackMsg struct {
	Index int
}

// MoveTrackMsg asks for a track to move within the queue.
type MoveTrackMsg struct {
	From, To int
}

// ClearQueueMsg asks for the queue to be emptied.
type ClearQueueMsg struct{}

var keys = keymap.NewResolver(keymap.ByContext("queue"))

// Model represents the queue panel state. The queue itself lives in the
// controller; the panel only mirrors the last snapshot.
type Model struct {
	ui.Base
	tracks  []playlist.Track
	playing int
	shuffle bool
	repeat  bool
	cursor  int
	offset  int
}

// New creates an empty queue panel.
func New() Model {
	return Model{playing: -1}
}

// SetQueue mirrors the controller queue from a snapshot. The cursor stays
// on the same row, clamped to the new length.
func (m *Model) SetQueue(s playback.Snapshot) {
	m.tracks = s.Tracks
	m.playing = s.Index
	m.shuffle = s.Shuffled
	m.repeat = s.Preferences.Repeat
	m.cursor = min(m.cursor, max(len(m.tracks)-1, 0))
	m.ensureCursorVisible()
}

// Cursor returns the highlighted row.
func (m Model) Cursor() int {
	return m.cursor
}

// Update handles key messages while the panel is focused.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || !m.IsFocused() {
		return m, nil
	}

	n := len(m.tracks)
	switch keys.Resolve(keyMsg.String()) {
	case keymap.ActionMoveDown:
		m.moveCursor(1)
	case keymap.ActionMoveUp:
		m.moveCursor(-1)
	case keymap.ActionJumpStart:
		m.cursor = 0
		m.offset = 0
	case keymap.ActionJumpEnd:
		if n > 0 {
			m.cursor = n - 1
			m.ensureCursorVisible()
		}
	case keymap.ActionSelect:
		if n > 0 {
			return m, send(JumpToTrackMsg{Index: m.cursor})
		}
	case keymap.ActionDelete:
		if n > 0 {
			return m, send(RemoveTrackMsg{Index: m.cursor})
		}
	case keymap.ActionMoveItemDown:
		if m.cursor < n-1 {
			from := m.cursor
			m.moveCursor(1)
			return m, send(MoveTrackMsg{From: from, To: m.cursor})
		}
	case keymap.ActionMoveItemUp:
		if m.cursor > 0 && n > 0 {
			from := m.cursor
			m.moveCursor(-1)
			return m, send(MoveTrackMsg{From: from, To: m.cursor})
		}
	case keymap.ActionClear:
		if n > 0 {
			return m, send(ClearQueueMsg{})
		}
	}
	return m, nil
}

// Handles reports whether the panel acts on key.
func Handles(key string) bool {
	return keys.Resolve(key) != ""
}

func send(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

func (m Model) listHeight() int {
	return m.ListHeight(ui.PanelOverhead)
}

func (m *Model) moveCursor(delta int) {
	if len(m.tracks) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.tracks)-1)
	m.ensureCursorVisible()
}

// ensureCursorVisible keeps ScrollMargin rows around the cursor when the
// list is tall enough.
func (m *Model) ensureCursorVisible() {
	height := m.listHeight()
	if height <= 0 {
		m.offset = 0
		return
	}
	margin := min(ui.ScrollMargin, (height-1)/2)
	if m.cursor < m.offset+margin {
		m.offset = m.cursor - margin
	}
	if m.cursor >= m.offset+height-margin {
		m.offset = m.cursor - height + margin + 1
	}
	m.offset = min(max(m.offset, 0), max(len(m.tracks)-height, 0))
}
