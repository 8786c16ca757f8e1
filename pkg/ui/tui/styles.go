package tui

import (
	"github.com/charmbracelet/lipgloss"

	"igcrawl/pkg/models"
)

var (
	cyan     = lipgloss.Color("#00D7FF")
	magenta  = lipgloss.Color("#D75FD7")
	green    = lipgloss.Color("#5FD75F")
	yellow   = lipgloss.Color("#FFD75F")
	orange   = lipgloss.Color("#FF8700")
	red      = lipgloss.Color("#FF5F5F")
	navy     = lipgloss.Color("#121629")
	slate    = lipgloss.Color("#1E2340")
	dimWhite = lipgloss.Color("#A8A8A8")
	grey     = lipgloss.Color("#5F5F5F")

	baseStyle = lipgloss.NewStyle().Background(navy).Foreground(dimWhite)
	logoStyle = lipgloss.NewStyle().Foreground(cyan).Bold(true).Padding(1, 0)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(magenta).
			Background(slate).
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Background(magenta).
			Foreground(navy).
			Bold(true).
			Padding(0, 1)

	statsLabelStyle = lipgloss.NewStyle().Foreground(cyan).Bold(true)
	statsValueStyle = lipgloss.NewStyle().Foreground(yellow)

	successStyle = lipgloss.NewStyle().Foreground(green).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(orange).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(red).Bold(true)

	activityStyle = lipgloss.NewStyle().PaddingLeft(2)

	logTimestampStyle = lipgloss.NewStyle().Foreground(grey)
	logMessageStyle   = lipgloss.NewStyle().Foreground(dimWhite)
	helpStyle         = lipgloss.NewStyle().Foreground(grey).Padding(1, 0, 0, 2)
)

// influencers stand out, candidates fade
var orderColors = map[models.Order]lipgloss.Color{
	models.OrderInfluencer: green,
	models.OrderTarget:     cyan,
	models.OrderCandidate:  dimWhite,
}

func orderStyle(o models.Order) lipgloss.Style {
	c, ok := orderColors[o]
	if !ok {
		c = dimWhite
	}
	return activityStyle.Foreground(c)
}

// quotaStyle colors the remaining quota by the spent share, 0 to 1
func quotaStyle(spent float64) lipgloss.Style {
	switch {
	case spent >= 0.9:
		return lipgloss.NewStyle().Foreground(red)
	case spent >= 0.7:
		return lipgloss.NewStyle().Foreground(orange)
	default:
		return lipgloss.NewStyle().Foreground(green)
	}
}
