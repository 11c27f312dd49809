// Package icons selects the glyphs used by the player UI.
package icons

// Style represents the icon style to use.
type Style string

const (
	StyleNerd    Style = "nerd"
	StyleUnicode Style = "unicode"
	StyleNone    Style = "none"
)

// Icons holds the icon characters for the current style.
type Icons struct {
	Play      string
	Pause     string
	Stop      string
	Shuffle   string
	Repeat    string
	Autoplay  string
	Volume    string
	Buffering string
	Playlist  string
}

var (
	nerdIcons = Icons{
		Play:      "", // nf-fa-play
		Pause:     "", // nf-fa-pause
		Stop:      "", // nf-fa-stop
		Shuffle:   "󰒟",      // nf-md-shuffle
		Repeat:    "󰑘",      // nf-md-repeat_once
		Autoplay:  "󰑖",      // nf-md-repeat
		Volume:    "󰕾",      // nf-md-volume_high
		Buffering: "󰔟",      // nf-md-timer_sand
		Playlist:  "󰲸 ",     // nf-md-playlist_music
	}

	unicodeIcons = Icons{
		Play:      "▶",
		Pause:     "⏸",
		Stop:      "⏹",
		Shuffle:   "🔀",
		Repeat:    "🔂",
		Autoplay:  "🔁",
		Volume:    "🔊",
		Buffering: "⏳",
		Playlist:  "📋 ",
	}

	noneIcons = Icons{
		Play:      ">",
		Pause:     "||",
		Stop:      "[]",
		Shuffle:   "[S]",
		Repeat:    "[1]",
		Autoplay:  "[A]",
		Volume:    "vol",
		Buffering: "...",
		Playlist:  "",
	}

	// current holds the active icon set
	current = unicodeIcons
)

// Init selects the icon set. Unknown styles fall back to plain text.
func Init(style string) {
	switch Style(style) {
	case StyleNerd:
		current = nerdIcons
	case StyleUnicode:
		current = unicodeIcons
	default:
		current = noneIcons
	}
}

func Play() string      { return current.Play }
func Pause() string     { return current.Pause }
func Stop() string      { return current.Stop }
func Shuffle() string   { return current.Shuffle }
func Repeat() string    { return current.Repeat }
func Autoplay() string  { return current.Autoplay }
func Volume() string    { return current.Volume }
func Buffering() string { return current.Buffering }

// FormatPlaylist formats a playlist name with the appropriate icon.
func FormatPlaylist(name string) string {
	return current.Playlist + name
}
