package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"igcrawl/pkg/crawler"
	"igcrawl/pkg/models"
)

// AccountPulledMsg is sent when an account's own steps finished
type AccountPulledMsg struct {
	ID     string
	Order  models.Order
	Action crawler.Action
}

// AccountPrivateMsg is sent when an account turned out private
type AccountPrivateMsg struct {
	ID string
}

// AccountFailedMsg is sent when an account subtree failed
type AccountFailedMsg struct {
	ID  string
	Err error
}

// QuotaMsg carries the remaining API budget
type QuotaMsg struct {
	Remaining int
}

// CrawlDoneMsg is sent once when the crawl returns
type CrawlDoneMsg struct {
	Report *crawler.Report
	Err    error
}

// LogMsg adds a log line
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to refresh elapsed time
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		return m, tea.Batch(tickCmd(), m.spinner.Tick)

	case AccountPulledMsg:
		m.RecordPulled(msg.ID, msg.Order, msg.Action)
		return m, nil

	case AccountPrivateMsg:
		m.RecordPrivate(msg.ID)
		m.AddLogMessage("WARN", "skipped, private: "+msg.ID)
		return m, nil

	case AccountFailedMsg:
		m.RecordFailed(msg.ID, msg.Err)
		m.AddLogMessage("ERROR", msg.ID+": "+msg.Err.Error())
		return m, nil

	case QuotaMsg:
		m.UpdateQuota(msg.Remaining)
		return m, nil

	case CrawlDoneMsg:
		m.MarkFinished(msg.Report, msg.Err)
		if msg.Err != nil {
			m.AddLogMessage("ERROR", "crawl failed: "+msg.Err.Error())
		} else {
			m.AddLogMessage("SUCCESS", "crawl finished, press q to exit")
		}
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.mu.Lock()
		m.logMessages = nil
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
