package tui

import (
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"igcrawl/pkg/crawler"
	"igcrawl/pkg/models"
)

// ActivityState is what happened to an account
type ActivityState int

const (
	ActivityPulled ActivityState = iota
	ActivityPrivate
	ActivityFailed
)

// Activity is one line of the recent accounts panel
type Activity struct {
	ID     string
	Order  models.Order
	Action crawler.Action
	State  ActivityState
	Err    error
	At     time.Time
}

// Model is the dashboard state
type Model struct {
	spinner  spinner.Model
	quotaBar progress.Model

	seed        string
	byOrder     map[models.Order]int
	promoted    int
	private     int
	failed      int
	recent      []Activity
	maxRecent   int
	quotaLeft   int
	quotaLimit  int
	startedAt   time.Time
	finished    bool
	report      *crawler.Report
	finishErr   error
	logMessages []LogMessage
	maxLogs     int

	width    int
	height   int
	showHelp bool

	mu sync.RWMutex
}

// LogMessage is one line of the log panel
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates the dashboard model
func NewModel(seed string, quotaLimit int) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(cyan)

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	return &Model{
		spinner:    s,
		quotaBar:   bar,
		seed:       seed,
		byOrder:    make(map[models.Order]int),
		maxRecent:  8,
		quotaLeft:  quotaLimit,
		quotaLimit: quotaLimit,
		startedAt:  time.Now(),
		maxLogs:    50,
	}
}

// Init starts the spinner
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// RecordPulled counts an account pulled at order
func (m *Model) RecordPulled(id string, order models.Order, action crawler.Action) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.byOrder[order]++
	if action == crawler.ActionPromote {
		m.promoted++
	}
	m.pushActivity(Activity{ID: id, Order: order, Action: action, State: ActivityPulled, At: time.Now()})
}

// RecordPrivate counts an account skipped as private
func (m *Model) RecordPrivate(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.private++
	m.pushActivity(Activity{ID: id, State: ActivityPrivate, At: time.Now()})
}

// RecordFailed counts a failed account subtree
func (m *Model) RecordFailed(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failed++
	m.pushActivity(Activity{ID: id, State: ActivityFailed, Err: err, At: time.Now()})
}

// UpdateQuota records the remaining API budget
func (m *Model) UpdateQuota(remaining int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.quotaLeft = remaining
	if remaining > m.quotaLimit {
		m.quotaLimit = remaining
	}
}

// MarkFinished stores the crawl outcome
func (m *Model) MarkFinished(report *crawler.Report, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.finished = true
	m.report = report
	m.finishErr = err
	if report != nil {
		m.quotaLeft = report.RemainingQuota
	}
}

// pushActivity must be called with mu held
func (m *Model) pushActivity(a Activity) {
	m.recent = append(m.recent, a)
	if len(m.recent) > m.maxRecent {
		m.recent = m.recent[len(m.recent)-m.maxRecent:]
	}
}

// AddLogMessage appends a line to the log panel
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := dimWhite
	switch level {
	case "ERROR":
		color = red
	case "WARN":
		color = orange
	case "SUCCESS":
		color = green
	case "INFO":
		color = cyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogs {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogs:]
	}
}

// Pulled returns the total number of accounts pulled
func (m *Model) Pulled() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, c := range m.byOrder {
		n += c
	}
	return n
}

// PulledAt returns the number of accounts pulled at order
func (m *Model) PulledAt(order models.Order) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byOrder[order]
}

// Recent returns a copy of the recent activity, oldest first
func (m *Model) Recent() []Activity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Activity(nil), m.recent...)
}

// QuotaUsage returns the spent share of the quota in [0, 1]
func (m *Model) QuotaUsage() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return quotaUsage(m.quotaLeft, m.quotaLimit)
}

func quotaUsage(left, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	used := float64(limit-left) / float64(limit)
	switch {
	case used < 0:
		return 0
	case used > 1:
		return 1
	}
	return used
}
