package keymap

// Binding maps keys to an action, with a description for the help view.
type Binding struct {
	Action      Action
	Keys        []string
	Description string
	Context     string // "global", "playback", "queue"
}

// Bindings contains all key bindings.
var Bindings = []Binding{
	// Global
	{ActionQuit, []string{"q", "ctrl+c"}, "Quit", "global"},
	{ActionHelp, []string{"?"}, "Show help", "global"},

	// Playback
	{ActionPlayPause, []string{" "}, "Play/pause", "playback"},
	{ActionStop, []string{"s"}, "Stop", "playback"},
	{ActionNextTrack, []string{"n", "pgdown"}, "Next track", "playback"},
	{ActionPrevTrack, []string{"p", "pgup"}, "Previous track / restart", "playback"},
	{ActionSeekForward, []string{"right", "l"}, "Seek forward", "playback"},
	{ActionSeekBack, []string{"left", "h"}, "Seek back", "playback"},
	{ActionVolumeUp, []string{"+", "="}, "Volume up", "playback"},
	{ActionVolumeDown, []string{"-"}, "Volume down", "playback"},
	{ActionToggleShuffle, []string{"S"}, "Toggle shuffle", "playback"},
	{ActionToggleRepeat, []string{"R"}, "Toggle repeat", "playback"},
	{ActionToggleAutoplay, []string{"A"}, "Toggle autoplay at end", "playback"},
	{ActionTogglePlayerMode, []string{"v"}, "Toggle player display", "playback"},

	// Queue
	{ActionMoveUp, []string{"k", "up"}, "Move up", "queue"},
	{ActionMoveDown, []string{"j", "down"}, "Move down", "queue"},
	{ActionJumpStart, []string{"g", "home"}, "First item", "queue"},
	{ActionJumpEnd, []string{"G", "end"}, "Last item", "queue"},
	{ActionSelect, []string{"enter"}, "Play track", "queue"},
	{ActionDelete, []string{"d", "delete"}, "Remove from queue", "queue"},
	{ActionMoveItemUp, []string{"K", "shift+up"}, "Move item up", "queue"},
	{ActionMoveItemDown, []string{"J", "shift+down"}, "Move item down", "queue"},
	{ActionClear, []string{"c"}, "Clear queue", "queue"},
}

// ByContext returns key bindings filtered by context.
func ByContext(context string) []Binding {
	var result []Binding
	for _, kb := range Bindings {
		if kb.Context == context {
			result = append(result, kb)
		}
	}
	return result
}
