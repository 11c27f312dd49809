// Package media publishes now-playing state to the operating system's media
// session and routes its transport actions back to the player.
package media

import (
	"fmt"
	"time"
)

// Action is a transport action the OS media surface can request.
type Action string

const (
	ActionPlay         Action = "play"
	ActionPause        Action = "pause"
	ActionPrevious     Action = "previoustrack"
	ActionNext         Action = "nexttrack"
	ActionSeekBackward Action = "seekbackward"
	ActionSeekForward  Action = "seekforward"
	ActionSeekTo       Action = "seekto"
	ActionStop         Action = "stop"

	ActionToggleRepeat  Action = "togglerepeat"
	ActionToggleShuffle Action = "toggleshuffle"
)

// Actions lists every action registered on bind.
var Actions = []Action{
	ActionPlay,
	ActionPause,
	ActionPrevious,
	ActionNext,
	ActionSeekBackward,
	ActionSeekForward,
	ActionSeekTo,
	ActionStop,
	ActionToggleRepeat,
	ActionToggleShuffle,
}

// ActionDetails carries the arguments of seek actions.
type ActionDetails struct {
	// SeekOffset is the relative offset for seek-backward/forward. Zero uses
	// the configured default.
	SeekOffset time.Duration
	// SeekTime is the absolute target for seek-to.
	SeekTime time.Duration
}

// Handler reacts to an action.
type Handler func(ActionDetails)

// Handlers maps actions to their handler.
type Handlers map[Action]Handler

// Artwork is one rendition of the cover image.
type Artwork struct {
	URL   string
	Sizes string
	Type  string
}

// Metadata describes the now-playing item. It is replaced wholesale on every
// track change.
type Metadata struct {
	TrackID string
	Title   string
	Artist  string
	Album   string
	Length  time.Duration
	Artwork []Artwork
}

// IsZero reports whether m describes nothing.
func (m Metadata) IsZero() bool {
	return m.TrackID == "" && m.Title == ""
}

// PlaybackStatus is the coarse transport status shown by the OS.
type PlaybackStatus int

const (
	StatusNone PlaybackStatus = iota
	StatusPaused
	StatusPlaying
)

func (s PlaybackStatus) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusPaused:
		return "paused"
	case StatusPlaying:
		return "playing"
	default:
		return fmt.Sprintf("PlaybackStatus(%d)", int(s))
	}
}

// PositionState feeds the OS position indicator.
type PositionState struct {
	Position time.Duration
	Duration time.Duration
	Rate     float64
}

// Modes mirrors repeat and shuffle toggles.
type Modes struct {
	Repeat  bool
	Shuffle bool
}

// Session is the platform media-session surface.
type Session interface {
	SetMetadata(m Metadata)
	SetActionHandlers(h Handlers)
	SetPlaybackStatus(s PlaybackStatus)
	SetPositionState(p PositionState)
	SetModes(m Modes)
	Close() error
}

// Noop is the session used when the platform has no media surface.
type Noop struct{}

func (Noop) SetMetadata(Metadata)             {}
func (Noop) SetActionHandlers(Handlers)       {}
func (Noop) SetPlaybackStatus(PlaybackStatus) {}
func (Noop) SetPositionState(PositionState)   {}
func (Noop) SetModes(Modes)                   {}
func (Noop) Close() error                     { return nil }

var _ Session = Noop{}
