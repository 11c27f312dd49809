package screen

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/wavestream/internal/keymap"
	"github.com/llehouerou/wavestream/internal/ui/playerbar"
	"github.com/llehouerou/wavestream/internal/ui/render"
	"github.com/llehouerou/wavestream/internal/ui/styles"
)

const statusHeight = 1

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.help {
		return m.renderHelp()
	}

	parts := []string{m.queue.View()}
	if bar := playerbar.Render(playerbar.NewState(m.snapshot), m.width); bar != "" {
		parts = append(parts, bar)
	}
	parts = append(parts, m.renderStatus())
	return strings.Join(parts, "\n")
}

// resize gives the queue whatever the player bar and status line leave.
func (m *Model) resize() {
	barHeight := 0
	if m.snapshot.Track != nil {
		barHeight = playerbar.Height(m.snapshot.Preferences.PlayerMode)
	}
	m.queue.SetSize(m.width, max(m.height-barHeight-statusHeight, 0))
}

func (m Model) renderStatus() string {
	s := styles.T().S()
	if m.status != "" {
		return s.Error.Render(render.Truncate(m.status, m.width))
	}
	return s.Subtle.Render(render.Truncate("? help  q quit", m.width))
}

// renderHelp lists the bindings grouped by context.
func (m Model) renderHelp() string {
	s := styles.T().S()
	innerWidth := max(m.width-2, 0)
	var lines []string
	for _, group := range []struct{ context, title string }{
		{"global", "General"},
		{"playback", "Playback"},
		{"queue", "Queue"},
	} {
		lines = append(lines, s.Title.Render(group.title))
		for _, b := range keymap.ByContext(group.context) {
			keys := render.TruncateAndPad(strings.Join(displayKeys(b.Keys), " / "), 16)
			lines = append(lines, "  "+s.Playing.Render(keys)+s.Base.Render(b.Description))
		}
		lines = append(lines, "")
	}
	body := strings.Join(lines, "\n")
	return styles.PanelStyle(true).
		Width(innerWidth).
		Height(max(m.height-2, lipgloss.Height(body))).
		Render(body)
}

func displayKeys(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		if k == " " {
			k = "space"
		}
		out[i] = k
	}
	return out
}
