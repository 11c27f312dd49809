// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Backend
	OpLoadPlaylist   Op = "load playlist"
	OpLoadTracks     Op = "load tracks"
	OpRecordPlay     Op = "record play"
	OpReportListened Op = "report listening time"

	// Playback
	OpPlaybackOpen  Op = "open track"
	OpPlaybackStart Op = "start playback"
	OpPlaybackSeek  Op = "seek"

	// Queue and preferences
	OpQueueRemove     Op = "remove from queue"
	OpPreferencesSave Op = "save preferences"

	// Last.fm
	OpLastfmAuth       Op = "authenticate with Last.fm"
	OpLastfmScrobble   Op = "scrobble"
	OpLastfmNowPlaying Op = "update Last.fm now playing"

	// Initialization
	OpInitialize Op = "initialize player"
)

// controllerOps maps the operation names carried by playback error events.
var controllerOps = map[string]Op{
	"bind": OpPlaybackOpen,
	"play": OpPlaybackStart,
	"seek": OpPlaybackSeek,
}

// ForEvent returns the Op for a playback error event operation name.
func ForEvent(operation string) Op {
	if op, ok := controllerOps[operation]; ok {
		return op
	}
	return Op(operation)
}

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
