package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"igcrawl/pkg/crawler"
	"igcrawl/pkg/models"
)

// TUI is a live crawl dashboard. It implements crawler.Observer, so it can be
// handed to the crawler directly.
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a dashboard for a crawl seeded at seed. quotaLimit scales
// the quota bar.
func NewTUI(seed string, quotaLimit int, opts ...tea.ProgramOption) *TUI {
	model := NewModel(seed, quotaLimit)
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &TUI{
		program: tea.NewProgram(model, opts...),
		model:   model,
	}
}

// Start runs the dashboard until the user quits
func (t *TUI) Start() error {
	go func() {
		time.Sleep(100 * time.Millisecond)
		t.program.Send(TickMsg(time.Now()))
	}()

	_, err := t.program.Run()
	return err
}

// Stop quits the dashboard
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the dashboard
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// AccountPulled implements crawler.Observer
func (t *TUI) AccountPulled(id string, order models.Order, action crawler.Action) {
	t.Send(AccountPulledMsg{ID: id, Order: order, Action: action})
}

// AccountPrivate implements crawler.Observer
func (t *TUI) AccountPrivate(id string) {
	t.Send(AccountPrivateMsg{ID: id})
}

// AccountFailed implements crawler.Observer
func (t *TUI) AccountFailed(id string, err error) {
	t.Send(AccountFailedMsg{ID: id, Err: err})
}

// QuotaRemaining implements crawler.Observer
func (t *TUI) QuotaRemaining(remaining int) {
	t.Send(QuotaMsg{Remaining: remaining})
}

// Finish shows the crawl outcome; the dashboard stays up until dismissed
func (t *TUI) Finish(report *crawler.Report, err error) {
	t.Send(CrawlDoneMsg{Report: report, Err: err})
}

// Log sends a log line to the dashboard
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}
