package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"igcrawl/pkg/crawler"
	"igcrawl/pkg/models"
)

// ProgressDisplay is a line-mode crawl observer. Without verbose it redraws a
// single status line; with verbose it prints one line per account.
type ProgressDisplay struct {
	mu        sync.Mutex
	out       io.Writer
	seed      string
	pulled    map[models.Order]int
	private   int
	failed    int
	quota     int
	startTime time.Time
	verbose   bool
}

// NewProgressDisplay creates a display for a crawl of seed
func NewProgressDisplay(out io.Writer, seed string, verbose bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:       out,
		seed:      seed,
		pulled:    make(map[models.Order]int),
		quota:     -1,
		startTime: time.Now(),
		verbose:   verbose,
	}
}

// AccountPulled implements crawler.Observer
func (p *ProgressDisplay) AccountPulled(id string, order models.Order, action crawler.Action) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pulled[order]++
	if p.verbose {
		fmt.Fprintf(p.out, "%s %s %s %s\n", Green("✓"), id, Dim(order.String()), Dim(action.String()))
		return
	}
	p.printProgress()
}

// AccountPrivate implements crawler.Observer
func (p *ProgressDisplay) AccountPrivate(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.private++
	if p.verbose {
		fmt.Fprintf(p.out, "%s %s\n", Yellow("skipped, private:"), id)
		return
	}
	p.printProgress()
}

// AccountFailed implements crawler.Observer
func (p *ProgressDisplay) AccountFailed(id string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failed++
	if p.verbose {
		fmt.Fprintf(p.out, "%s %s %v\n", Red("✗"), id, err)
		return
	}
	p.printProgress()
}

// QuotaRemaining implements crawler.Observer
func (p *ProgressDisplay) QuotaRemaining(remaining int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quota = remaining
}

// Complete ends the status line
func (p *ProgressDisplay) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.verbose {
		fmt.Fprintln(p.out)
	}
}

// Line returns the current status line without color
func (p *ProgressDisplay) Line() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.line(func(s string) string { return s })
}

func (p *ProgressDisplay) line(paint func(string) string) string {
	total := 0
	for _, n := range p.pulled {
		total += n
	}

	parts := []string{
		fmt.Sprintf("@%s", p.seed),
		fmt.Sprintf("%d pulled (%d/%d/%d)", total,
			p.pulled[models.OrderInfluencer], p.pulled[models.OrderTarget], p.pulled[models.OrderCandidate]),
	}
	if p.private > 0 {
		parts = append(parts, fmt.Sprintf("%d private", p.private))
	}
	if p.failed > 0 {
		parts = append(parts, paint(fmt.Sprintf("%d failed", p.failed)))
	}
	if p.quota >= 0 {
		parts = append(parts, fmt.Sprintf("quota %d", p.quota))
	}
	parts = append(parts, FormatDuration(time.Since(p.startTime)))
	return strings.Join(parts, " • ")
}

// printProgress must be called with mu held
func (p *ProgressDisplay) printProgress() {
	line := p.line(Red)
	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 100), Cyan(line))
}
