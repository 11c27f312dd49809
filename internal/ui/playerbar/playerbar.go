// Package playerbar renders the now-playing bar from a controller snapshot.
package playerbar

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/wavestream/internal/icons"
	"github.com/llehouerou/wavestream/internal/playback"
	"github.com/llehouerou/wavestream/internal/state"
	"github.com/llehouerou/wavestream/internal/ui"
	"github.com/llehouerou/wavestream/internal/ui/render"
)

// State holds everything needed to render the player bar.
type State struct {
	Active    bool
	Playing   bool
	Buffering bool
	Title     string
	Uploader  string
	Context   string
	Index     int
	Total     int
	Position  time.Duration
	Duration  time.Duration
	Buffered  time.Duration
	Volume    float64
	Shuffle   bool
	Repeat    bool
	Autoplay  bool
	Mode      state.PlayerMode
}

// Height returns the total height of the player bar for the given mode.
func Height(mode state.PlayerMode) int {
	if mode == state.PlayerModeExpanded {
		return 6 // 4 content rows + 2 border rows
	}
	return 3
}

// NewState builds a State from a snapshot. A snapshot without a current
// track renders nothing.
func NewState(s playback.Snapshot) State {
	if s.Track == nil {
		return State{Mode: s.Preferences.PlayerMode}
	}
	st := State{
		Active:    true,
		Playing:   s.Playing,
		Buffering: s.Buffering,
		Title:     s.Track.Title,
		Uploader:  s.Track.Uploader,
		Index:     s.Index,
		Total:     len(s.Tracks),
		Position:  s.Position,
		Duration:  s.Duration,
		Buffered:  s.Buffered,
		Volume:    s.Preferences.Volume,
		Shuffle:   s.Shuffled,
		Repeat:    s.Preferences.Repeat,
		Autoplay:  s.Preferences.AutoplayOnEnd,
		Mode:      s.Preferences.PlayerMode,
	}
	if st.Duration == 0 {
		st.Duration = s.Track.Duration
	}
	if s.Context != nil {
		st.Context = s.Context.Name
	}
	return st
}

// Render returns the player bar for the given width, or "" when nothing is
// bound.
func Render(s State, width int) string {
	if !s.Active {
		return ""
	}
	if s.Mode == state.PlayerModeExpanded && width-2 >= ui.MinExpandedWidth {
		return renderExpanded(s, width)
	}
	return renderCompact(s, width)
}

// minTitleWidth is the title room kept before the compact bar starts
// shedding the time and the progress line.
const minTitleWidth = 8

func renderCompact(s State, width int) string {
	innerWidth := max(width-6, 0)
	separator := "   "

	status := statusIcon(s) + "  "
	timeStr := fmt.Sprintf("%s / %s", render.Duration(s.Position), render.Duration(s.Duration))
	title := trackTitle(s)
	head := minTitleWidth + len(separator) + lipgloss.Width(status)

	// Narrow bars drop the time first, then the progress line.
	showTime := innerWidth >= head+minBarWidth+len(separator)+lipgloss.Width(timeStr)
	showBar := innerWidth >= head+ui.MinProgressBarWidth
	if !showBar {
		line := render.Truncate(title, innerWidth-lipgloss.Width(status))
		if line == "" {
			line = render.Truncate(title, innerWidth)
		} else {
			line = status + titleStyle().Render(line)
		}
		return barStyle().Padding(0, 2).Width(width - 2).Render(line)
	}

	fixed := len(separator) + lipgloss.Width(status)
	barMin := ui.MinProgressBarWidth
	if showTime {
		fixed += len(separator) + lipgloss.Width(timeStr)
		barMin = minBarWidth
	}
	content := compactContent(title, s.Uploader, separator, innerWidth-fixed-barMin)
	barWidth := max(innerWidth-lipgloss.Width(content)-fixed, 0)

	var b strings.Builder
	b.WriteString(content)
	b.WriteString(separator)
	b.WriteString(status)
	b.WriteString(renderLineBar(s.Position, s.Buffered, s.Duration, barWidth))
	if showTime {
		b.WriteString(separator)
		b.WriteString(mutedStyle().Render(timeStr))
	}

	return barStyle().Padding(0, 2).Width(width - 2).Render(b.String())
}

// compactContent fits the title and uploader into available cells. The
// uploader is truncated before the title and dropped when there is no room.
func compactContent(title, info, separator string, available int) string {
	titleWidth := lipgloss.Width(title)
	switch {
	case info != "" && titleWidth+len(separator)+lipgloss.Width(info) <= available:
		return titleStyle().Render(title) + separator + uploaderStyle().Render(info)
	case info != "" && titleWidth+len(separator) < available:
		rest := available - titleWidth - len(separator)
		return titleStyle().Render(title) + separator + uploaderStyle().Render(render.Truncate(info, rest))
	default:
		return titleStyle().Render(render.Truncate(title, available))
	}
}

func statusIcon(s State) string {
	switch {
	case s.Buffering:
		return icons.Buffering()
	case s.Playing:
		return icons.Play()
	default:
		return icons.Pause()
	}
}

func trackTitle(s State) string {
	if s.Title == "" {
		return "Unknown Track"
	}
	return render.Sanitize(s.Title)
}
