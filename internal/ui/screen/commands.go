package screen

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/wavestream/internal/errmsg"
	"github.com/llehouerou/wavestream/internal/playback"
)

// playerEventMsg reports that the controller state changed.
type playerEventMsg struct{}

// playerErrorMsg carries a failure published by the controller.
type playerErrorMsg struct {
	event playback.ErrorEvent
}

// playerClosedMsg is sent once the controller has shut down.
type playerClosedMsg struct{}

// actionDoneMsg is sent when a transport action run off the update loop
// returns.
type actionDoneMsg struct{}

// watchEvents waits for the next controller event. Events only signal that
// a fresh snapshot is due; the snapshot is the source of truth.
func (m Model) watchEvents() tea.Cmd {
	if m.sub == nil {
		return nil
	}
	sub := m.sub
	return func() tea.Msg {
		select {
		case <-sub.StateChanged:
		case <-sub.TrackChanged:
		case <-sub.PositionChanged:
		case <-sub.BufferChanged:
		case <-sub.QueueChanged:
		case <-sub.ModeChanged:
		case <-sub.VolumeChanged:
		case e := <-sub.Error:
			return playerErrorMsg{event: e}
		case <-sub.Done:
			return playerClosedMsg{}
		}
		return playerEventMsg{}
	}
}

// run performs a transport action that may wait on audio without blocking
// the update loop.
func (m Model) run(action func(ctx context.Context)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		action(ctx)
		return actionDoneMsg{}
	}
}

// afterGesture reports a user gesture off the update loop, since a retried
// play may block while the stream loads, then runs next.
func (m Model) afterGesture(next tea.Cmd) tea.Cmd {
	ctx := m.ctx
	player := m.player
	return func() tea.Msg {
		player.UserGesture(ctx)
		if next == nil {
			return actionDoneMsg{}
		}
		return next()
	}
}

// formatError names the failed track by title when it is still queued.
func formatError(e playback.ErrorEvent, snap playback.Snapshot) string {
	name := e.TrackID
	for _, t := range snap.Tracks {
		if t.ID == e.TrackID && t.Title != "" {
			name = t.Title
			break
		}
	}
	return errmsg.FormatWith(errmsg.ForEvent(e.Operation), name, e.Err)
}
