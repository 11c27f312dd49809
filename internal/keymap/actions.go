// Package keymap defines key bindings and action dispatch for the player.
package keymap

// Action represents a user-triggerable action.
type Action string

const (
	// Global actions
	ActionQuit Action = "quit"
	ActionHelp Action = "help"

	// Transport
	ActionPlayPause   Action = "play_pause"
	ActionStop        Action = "stop"
	ActionNextTrack   Action = "next_track"
	ActionPrevTrack   Action = "prev_track"
	ActionSeekForward Action = "seek_forward"
	ActionSeekBack    Action = "seek_back"
	ActionVolumeUp    Action = "volume_up"
	ActionVolumeDown  Action = "volume_down"

	// Modes
	ActionToggleShuffle    Action = "toggle_shuffle"
	ActionToggleRepeat     Action = "toggle_repeat"
	ActionToggleAutoplay   Action = "toggle_autoplay"
	ActionTogglePlayerMode Action = "toggle_player_mode"

	// Queue
	ActionMoveUp       Action = "move_up"
	ActionMoveDown     Action = "move_down"
	ActionJumpStart    Action = "jump_start"
	ActionJumpEnd      Action = "jump_end"
	ActionSelect       Action = "select"
	ActionDelete       Action = "delete"
	ActionMoveItemUp   Action = "move_item_up"
	ActionMoveItemDown Action = "move_item_down"
	ActionClear        Action = "clear"
)
