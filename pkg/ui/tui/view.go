package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"igcrawl/pkg/crawler"
	"igcrawl/pkg/models"
)

// View renders the dashboard
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())

	width := (m.width - 8) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(width),
		m.renderActivityPanel(width),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderQuotaPanel(width),
		m.renderLogsPanel(width),
	)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderHeader() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := m.spinner.View() + " crawling"
	switch {
	case m.finished && m.finishErr != nil:
		status = errorStyle.Render("✗ failed")
	case m.finished && m.report != nil:
		status = successStyle.Render("✓ " + m.report.Status())
	case m.finished:
		status = successStyle.Render("✓ done")
	}

	title := logoStyle.Render("IGCRAWL // follow graph crawler")
	seed := statsLabelStyle.Render("seed ") + statsValueStyle.Render("@"+m.seed)
	return lipgloss.JoinHorizontal(lipgloss.Center, title, "   ", seed, "   ", status)
}

func (m *Model) renderStatsPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" CRAWL STATS ")
	row := func(label, value string) string {
		return fmt.Sprintf("%s %s", statsLabelStyle.Render(label), statsValueStyle.Render(value))
	}

	stats := []string{
		row("Elapsed:", formatDuration(time.Since(m.startedAt))),
		row("Influencers:", fmt.Sprint(m.byOrder[models.OrderInfluencer])),
		row("Targets:", fmt.Sprint(m.byOrder[models.OrderTarget])),
		row("Candidates:", fmt.Sprint(m.byOrder[models.OrderCandidate])),
		row("Promoted:", fmt.Sprint(m.promoted)),
	}
	if m.private > 0 {
		stats = append(stats, warningStyle.Render(fmt.Sprintf("%d private", m.private)))
	}
	if m.failed > 0 {
		stats = append(stats, errorStyle.Render(fmt.Sprintf("%d failed", m.failed)))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, stats...)),
	)
}

func (m *Model) renderActivityPanel(width int) string {
	title := titleStyle.Render(" RECENT ACCOUNTS ")

	recent := m.Recent()
	if len(recent) == 0 {
		content := lipgloss.NewStyle().Foreground(dimWhite).Render("Nothing pulled yet")
		return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
	}

	items := make([]string, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		items = append(items, renderActivity(recent[i]))
	}
	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, items...)),
	)
}

func renderActivity(a Activity) string {
	switch a.State {
	case ActivityPrivate:
		return activityStyle.Render(warningStyle.Render("⊘ ") + a.ID + " private")
	case ActivityFailed:
		return activityStyle.Render(errorStyle.Render("✗ ") + a.ID)
	}
	line := fmt.Sprintf("✓ %s %s (%s)", a.ID, a.Order, a.Action)
	style := orderStyle(a.Order)
	if a.Action == crawler.ActionPromote {
		style = style.Bold(true)
	}
	return style.Render(line)
}

func (m *Model) renderQuotaPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" API QUOTA ")
	usage := quotaUsage(m.quotaLeft, m.quotaLimit)

	bar := m.quotaBar
	bar.Width = width - 8
	style := quotaStyle(usage)

	content := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Remaining:"),
			style.Render(fmt.Sprintf("%d/%d", m.quotaLeft, m.quotaLimit))),
		bar.ViewAs(usage),
	}
	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(content, "\n")),
	)
}

func (m *Model) renderLogsPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" LOG ")

	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}

	var logs []string
	maxMsgLen := width - 25
	for _, log := range m.logMessages[start:] {
		msg := log.Message
		if maxMsgLen > 3 && len(msg) > maxMsgLen {
			msg = msg[:maxMsgLen-3] + "..."
		}
		logs = append(logs, fmt.Sprintf("%s %s %s",
			logTimestampStyle.Render(log.Time.Format("15:04:05")),
			lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level)),
			logMessageStyle.Render(msg),
		))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No logs yet...")
	}

	height := m.height - 20
	if height < 5 {
		height = 5
	}
	return panelStyle.Width(width).Height(height).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func (m *Model) renderHelp() string {
	help := `
  Keys:
    q/Q      - Quit (cancels a running crawl)
    ctrl+l   - Clear the log
    ?        - Toggle this help

  Accounts:
    ` + successStyle.Render("✓") + `  pulled    ` + warningStyle.Render("⊘") + `  private    ` + errorStyle.Render("✗") + `  failed
`
	return panelStyle.Width(m.width).Render(help)
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
