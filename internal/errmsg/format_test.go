//nolint:goconst // test cases intentionally repeat strings for readability
package errmsg

import (
	"errors"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpLoadPlaylist,
			err:      nil,
			expected: "",
		},
		{
			name:     "formats error with operation",
			op:       OpLoadPlaylist,
			err:      errors.New("not found"),
			expected: "Failed to load playlist: not found",
		},
		{
			name:     "playback operation",
			op:       OpPlaybackStart,
			err:      errors.New("no audio device"),
			expected: "Failed to start playback: no audio device",
		},
		{
			name:     "scrobble operation",
			op:       OpLastfmScrobble,
			err:      errors.New("invalid session"),
			expected: "Failed to scrobble: invalid session",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Format(tt.op, tt.err)
			if result != tt.expected {
				t.Errorf("Format(%q, %v) = %q, want %q", tt.op, tt.err, result, tt.expected)
			}
		})
	}
}

func TestFormatWith(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		context  string
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpPlaybackOpen,
			context:  "Song",
			err:      nil,
			expected: "",
		},
		{
			name:     "formats error with context",
			op:       OpPlaybackOpen,
			context:  "Song",
			err:      errors.New("unsupported format"),
			expected: "Failed to open track 'Song': unsupported format",
		},
		{
			name:     "empty context falls back to Format",
			op:       OpPlaybackOpen,
			context:  "",
			err:      errors.New("unsupported format"),
			expected: "Failed to open track: unsupported format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatWith(tt.op, tt.context, tt.err)
			if result != tt.expected {
				t.Errorf("FormatWith(%q, %q, %v) = %q, want %q", tt.op, tt.context, tt.err, result, tt.expected)
			}
		})
	}
}

func TestForEvent(t *testing.T) {
	tests := map[string]Op{
		"bind":   OpPlaybackOpen,
		"play":   OpPlaybackStart,
		"seek":   OpPlaybackSeek,
		"resume": Op("resume"),
	}
	for name, want := range tests {
		if got := ForEvent(name); got != want {
			t.Errorf("ForEvent(%q) = %q, want %q", name, got, want)
		}
	}
}
