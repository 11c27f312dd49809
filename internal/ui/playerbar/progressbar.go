package playerbar

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/wavestream/internal/icons"
	"github.com/llehouerou/wavestream/internal/ui/render"
)

const minBarWidth = 10

var (
	filledBlock   = "▓"
	bufferedBlock = "▒"
	emptyBlock    = "░"
)

// RenderProgressBar renders a block-style progress bar.
// Format: ▶  1:23  ▓▓▓▓▒▒░░░░  4:56
func RenderProgressBar(s State, width int) string {
	status := statusIcon(s)
	posStr := render.Duration(s.Position)
	durStr := render.Duration(s.Duration)

	fixedWidth := lipgloss.Width(status) + 2 + lipgloss.Width(posStr) + 2 + 2 + lipgloss.Width(durStr)
	barWidth := width - fixedWidth
	if barWidth < 3 {
		return status + "  " + posStr + " / " + durStr
	}

	filled, buffered := split(s.Position, s.Buffered, s.Duration, barWidth)
	bar := activeStyle().Render(strings.Repeat(filledBlock, filled)) +
		mutedStyle().Render(strings.Repeat(bufferedBlock, buffered)) +
		subtleStyle().Render(strings.Repeat(emptyBlock, barWidth-filled-buffered))

	return status + "  " + posStr + "  " + bar + "  " + durStr
}

// renderLineBar is the thin bar used by the compact layout.
func renderLineBar(position, bufferedTo, duration time.Duration, width int) string {
	filled, buffered := split(position, bufferedTo, duration, width)
	return activeStyle().Render(strings.Repeat("━", filled)) +
		mutedStyle().Render(strings.Repeat("─", buffered)) +
		subtleStyle().Render(strings.Repeat("─", width-filled-buffered))
}

// split returns the played and buffered-ahead cell counts for a bar of
// width cells.
func split(position, bufferedTo, duration time.Duration, width int) (filled, buffered int) {
	if duration <= 0 || width <= 0 {
		return 0, 0
	}
	cells := func(d time.Duration) int {
		return min(max(int(float64(width)*float64(d)/float64(duration)), 0), width)
	}
	filled = cells(position)
	buffered = max(cells(bufferedTo)-filled, 0)
	return filled, buffered
}

// RenderVolume renders the volume indicator, e.g. "🔊  80%".
func RenderVolume(volume float64) string {
	return mutedStyle().Render(fmt.Sprintf("%s %3d%%", icons.Volume(), int(volume*100+0.5)))
}
