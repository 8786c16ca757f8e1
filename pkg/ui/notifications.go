package ui

import (
	"fmt"
	"os/exec"
	"runtime"

	"igcrawl/pkg/crawler"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// Notifier announces the end of a crawl
type Notifier struct {
	sender NotificationSender
}

// NewNotifier picks the sender for the current platform. Other platforms
// get no desktop notification.
func NewNotifier() *Notifier {
	switch runtime.GOOS {
	case "linux":
		return &Notifier{sender: &LinuxNotificationSender{}}
	case "darwin":
		return &Notifier{sender: &MacOSNotificationSender{}}
	default:
		return &Notifier{}
	}
}

// NewNotifierWithSender uses sender for delivery
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// CrawlFinished notifies about a finished or failed crawl. Delivery errors
// are returned but callers usually ignore them.
func (n *Notifier) CrawlFinished(r *crawler.Report, err error) error {
	if n.sender == nil {
		return nil
	}

	if err != nil || r == nil {
		msg := "no report"
		if err != nil {
			msg = err.Error()
		}
		return n.sender.Send("igcrawl: crawl failed", msg)
	}

	title := "igcrawl: crawl " + r.Status()
	msg := fmt.Sprintf("%s: %d pulled, %d private, %d failed", r.SeedID, r.Pulled, r.Private, r.Failures)
	return n.sender.Send(title, msg)
}
