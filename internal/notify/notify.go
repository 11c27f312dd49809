// Package notify provides desktop notifications via D-Bus.
package notify

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/llehouerou/wavestream/internal/playlist"
)

// Urgency represents notification priority levels per freedesktop spec.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// TrackCategory tags now-playing notifications.
const TrackCategory = "x-wavestream.track"

// trackIcon is the themed icon used when a track has no cached artwork.
const trackIcon = "audio-x-generic"

// Notification contains data for a desktop notification.
type Notification struct {
	Title      string  // Summary text (required)
	Body       string  // Body text (optional, supports basic markup)
	Icon       string  // Path to image file or icon name (optional)
	Image      string  // Artwork file, sent as the image-path hint
	Category   string  // Hint category, e.g. TrackCategory
	Transient  bool    // Skip the notification history and sound
	Timeout    int32   // ms, -1 = server default, 0 = never expire
	ReplacesID uint32  // 0 = new notification, >0 = replace existing
	Urgency    Urgency // Low, Normal, Critical
}

// TrackNotification describes track for the desktop. artwork is a local
// thumbnail path, or "" to fall back to a themed icon. Untitled tracks are
// named by their id.
func TrackNotification(track playlist.Track, artwork string) Notification {
	n := Notification{
		Title:     track.Title,
		Body:      track.Uploader,
		Icon:      trackIcon,
		Category:  TrackCategory,
		Transient: true,
		Urgency:   UrgencyLow,
	}
	if n.Title == "" {
		n.Title = track.ID
	}
	if artwork != "" {
		n.Icon = artwork
		n.Image = artwork
	}
	return n
}

// Notifier sends desktop notifications.
type Notifier interface {
	// Notify sends a notification and returns its ID.
	// Returns 0 and nil error if notifications are disabled or unavailable.
	Notify(n Notification) (uint32, error)
	// Close closes a notification by ID.
	Close(id uint32) error
}

// Disabled drops every notification. It stands in when no notification
// server is reachable.
type Disabled struct{}

func (Disabled) Notify(Notification) (uint32, error) { return 0, nil }
func (Disabled) Close(uint32) error                  { return nil }

// NowPlaying shows one notification per track change, replacing the
// previous one so the desktop keeps a single entry.
type NowPlaying struct {
	notifier Notifier
	thumbs   *ThumbnailCache
	timeout  int32
	lastID   uint32
}

// NewNowPlaying wraps n. thumbs may be nil to skip artwork.
func NewNowPlaying(n Notifier, thumbs *ThumbnailCache, timeoutMs int32) *NowPlaying {
	return &NowPlaying{notifier: n, thumbs: thumbs, timeout: timeoutMs}
}

// Show announces track.
func (p *NowPlaying) Show(ctx context.Context, track playlist.Track) error {
	var artwork string
	if p.thumbs != nil {
		artwork = p.thumbs.Path(ctx, track)
	}
	n := TrackNotification(track, artwork)
	n.Timeout = p.timeout
	n.ReplacesID = p.lastID
	id, err := p.notifier.Notify(n)
	if err != nil {
		return errors.Wrap(err, "notify")
	}
	p.lastID = id
	return nil
}

// Dismiss closes the current notification, if any.
func (p *NowPlaying) Dismiss() error {
	if p.lastID == 0 {
		return nil
	}
	id := p.lastID
	p.lastID = 0
	return p.notifier.Close(id)
}
