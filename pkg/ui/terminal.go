package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"igcrawl/pkg/crawler"
	"igcrawl/pkg/models"
)

// Banner is printed above interactive commands
const Banner = `
  ╔══════════════════════════════════════════╗
  ║  IGCRAWL  ·  follow graph crawler        ║
  ╚══════════════════════════════════════════╝
`

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// Out is where the Print helpers write
var Out io.Writer = os.Stdout

// PrintBanner prints the banner in cyan
func PrintBanner() {
	fmt.Fprint(Out, Cyan(Banner))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Out, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Out, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Out, Green(msg))
}

// PrintInfo prints a label/value pair
func PrintInfo(label string, value string) {
	fmt.Fprintf(Out, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Out, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Out, Yellow(msg))
	}
}

// PrintNotFound is the status line for a handle that resolves to nothing
func PrintNotFound(handle string) {
	fmt.Fprintf(Out, "%s %s\n", Red("not found:"), handle)
}

// PrintPrivateSkip is the status line for a private account
func PrintPrivateSkip(id string) {
	fmt.Fprintf(Out, "%s %s\n", Yellow("skipped, private:"), id)
}

// PrintReport prints the summary of a crawl
func PrintReport(r *crawler.Report) {
	status := Green(r.Status())
	if r.Status() != models.RunCompleted {
		status = Yellow(r.Status())
	}

	seed := r.SeedID
	if r.SeedHandle != "" {
		seed = "@" + r.SeedHandle + " (" + r.SeedID + ")"
	}

	fmt.Fprintf(Out, "\n%s %s %s\n", Magenta("crawl"), seed, status)
	fmt.Fprintf(Out, "  %s %d pulled, %d promoted, %d resumed, %d already done\n",
		Dim("•"), r.Pulled, r.Promoted, r.Resumed, r.Skipped)
	if r.Private > 0 || r.Unavailable > 0 {
		fmt.Fprintf(Out, "  %s %d private, %d unavailable\n", Dim("•"), r.Private, r.Unavailable)
	}
	if r.Failures > 0 {
		fmt.Fprintf(Out, "  %s %s\n", Dim("•"), Red(fmt.Sprintf("%d failed subtrees, rerun to resume", r.Failures)))
	}
	fmt.Fprintf(Out, "  %s %d store conflicts, %d remote calls\n", Dim("•"), r.Conflicts, r.RemoteCalls)
	fmt.Fprintf(Out, "  %s quota left %d, took %s\n", Dim("•"), r.RemainingQuota, FormatDuration(r.Duration))
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
