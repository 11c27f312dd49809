package playerbar

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/wavestream/internal/ui/styles"
)

func barStyle() lipgloss.Style {
	return styles.T().S().Panel
}

func titleStyle() lipgloss.Style {
	return styles.T().S().Title
}

func uploaderStyle() lipgloss.Style {
	return styles.T().S().Muted
}

func mutedStyle() lipgloss.Style {
	return styles.T().S().Muted
}

func subtleStyle() lipgloss.Style {
	return styles.T().S().Subtle
}

func activeStyle() lipgloss.Style {
	return styles.T().S().Playing
}
