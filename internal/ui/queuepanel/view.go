package queuepanel

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/wavestream/internal/icons"
	"github.com/llehouerou/wavestream/internal/playlist"
	"github.com/llehouerou/wavestream/internal/ui"
	"github.com/llehouerou/wavestream/internal/ui/render"
	"github.com/llehouerou/wavestream/internal/ui/styles"
)

const playingSymbol = "▶"

// View renders the queue panel.
func (m Model) View() string {
	if m.Width() == 0 || m.Height() == 0 {
		return ""
	}

	innerWidth := m.Width() - ui.BorderHeight
	content := m.renderHeader(innerWidth) + "\n" +
		render.Separator(innerWidth) + "\n" +
		m.renderTrackList(innerWidth, m.listHeight())

	return styles.PanelStyle(m.IsFocused()).
		Width(innerWidth).
		Render(content)
}

func (m Model) renderHeader(innerWidth int) string {
	current := 0
	if m.playing >= 0 && m.playing < len(m.tracks) {
		current = m.playing + 1
	}
	text := fmt.Sprintf("Queue (%d/%d)", current, len(m.tracks))

	var parts []string
	if m.shuffle {
		parts = append(parts, icons.Shuffle())
	}
	if m.repeat {
		parts = append(parts, icons.Repeat())
	}
	modes := ""
	if len(parts) > 0 {
		modes = strings.Join(parts, "  ") + " "
	}

	left := render.TruncateAndPad(text, max(innerWidth-lipgloss.Width(modes), 0))
	return styles.T().S().Title.Render(left) + styles.T().S().Playing.Render(modes)
}

func (m Model) renderTrackList(innerWidth, listHeight int) string {
	lines := make([]string, 0, max(listHeight, 0))
	for i := range max(listHeight, 0) {
		idx := i + m.offset
		if idx >= len(m.tracks) {
			lines = append(lines, render.EmptyLine(innerWidth))
			continue
		}
		lines = append(lines, m.renderTrackLine(m.tracks[idx], idx, innerWidth))
	}
	return strings.Join(lines, "\n")
}

// renderTrackLine lays out title and uploader in two columns after the
// playing marker.
func (m Model) renderTrackLine(track playlist.Track, idx, width int) string {
	prefix := "  "
	if idx == m.playing {
		prefix = playingSymbol + " "
	}

	duration := ""
	if track.Duration > 0 {
		duration = " " + render.Duration(track.Duration)
	}
	contentWidth := max(width-lipgloss.Width(prefix)-lipgloss.Width(duration), 0)
	titleWidth := contentWidth / 2
	title := track.Title
	if title == "" {
		title = track.ID
	}
	line := prefix +
		render.TruncateAndPad(title, titleWidth) +
		render.TruncateAndPad(track.Uploader, contentWidth-titleWidth) +
		duration

	return m.trackStyle(idx).Render(line)
}

func (m Model) trackStyle(idx int) lipgloss.Style {
	s := styles.T().S()
	isCursor := idx == m.cursor && m.IsFocused()
	isPlaying := idx == m.playing
	isPlayed := m.playing >= 0 && idx < m.playing

	switch {
	case isCursor && isPlaying:
		return s.Cursor.Inherit(s.Playing)
	case isCursor && isPlayed:
		return s.Cursor.Inherit(s.Subtle)
	case isCursor:
		return s.Cursor
	case isPlaying:
		return s.Playing
	case isPlayed:
		return s.Subtle
	default:
		return s.Base
	}
}
