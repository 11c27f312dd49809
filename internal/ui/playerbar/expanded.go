package playerbar

import (
	"fmt"
	"strings"

	"github.com/llehouerou/wavestream/internal/icons"
	"github.com/llehouerou/wavestream/internal/ui/render"
	"github.com/llehouerou/wavestream/internal/ui/styles"
)

const contentRows = 4 // Must match Height(PlayerModeExpanded) - 2 for borders

// renderExpanded shows the title in a gradient, then the uploader and
// context, the mode toggles, and a full-width progress line.
func renderExpanded(s State, width int) string {
	innerWidth := max(width-4, 0)
	t := styles.T()

	title := styles.Gradient(render.Truncate(trackTitle(s), innerWidth),
		t.Primary, t.Secondary, true)

	var info []string
	if s.Uploader != "" {
		info = append(info, render.Sanitize(s.Uploader))
	}
	if s.Context != "" {
		info = append(info, icons.FormatPlaylist(render.Sanitize(s.Context)))
	}
	if s.Total > 0 {
		info = append(info, fmt.Sprintf("%d/%d", s.Index+1, s.Total))
	}
	infoLine := render.Row(
		uploaderStyle().Render(render.Truncate(strings.Join(info, " · "), innerWidth/2)),
		renderModes(s),
		innerWidth,
	)

	lines := []string{
		title,
		infoLine,
		"",
		RenderProgressBar(s, innerWidth),
	}
	return barStyle().Padding(0, 1).Width(width - 2).Render(strings.Join(lines[:contentRows], "\n"))
}

// renderModes lists the active toggles and the volume.
func renderModes(s State) string {
	mode := func(on bool, icon string) string {
		if on {
			return activeStyle().Render(icon)
		}
		return subtleStyle().Render(icon)
	}
	return strings.Join([]string{
		mode(s.Shuffle, icons.Shuffle()),
		mode(s.Repeat, icons.Repeat()),
		mode(s.Autoplay, icons.Autoplay()),
		RenderVolume(s.Volume),
	}, " ")
}
