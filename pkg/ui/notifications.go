package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"bskyfollow/pkg/bulk"
)

// NotificationSender interface for platform-specific notification implementations
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

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		$template = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
		$text = $template.GetElementsByTagName("text")
		$text.Item(0).AppendChild($template.CreateTextNode('%s')) | Out-Null
		$text.Item(1).AppendChild($template.CreateTextNode('%s')) | Out-Null
		$toast = [Windows.UI.Notifications.ToastNotification]::new($template)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("bskyfollow").Show($toast)
	`, psQuote(title), psQuote(message))

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

func psQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Notification modes, matching notifications.notification_type in the config
const (
	ModeTerminal = "terminal"
	ModeDesktop  = "desktop"
	ModeNone     = "none"
)

// Notifier prints notifications to the terminal and, in desktop mode, also
// raises a desktop notification.
type Notifier struct {
	sender NotificationSender
	out    io.Writer
	mode   string
}

// NewNotifier creates a Notifier for the current platform
func NewNotifier(mode string) *Notifier {
	var sender NotificationSender
	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	case "windows":
		sender = &WindowsNotificationSender{}
	}
	return NewNotifierWithSender(mode, sender, os.Stdout)
}

// NewNotifierWithSender creates a Notifier with an explicit sender and output
func NewNotifierWithSender(mode string, sender NotificationSender, out io.Writer) *Notifier {
	mode = strings.ToLower(mode)
	if mode == "" {
		mode = ModeTerminal
	}
	return &Notifier{sender: sender, out: out, mode: mode}
}

func (n *Notifier) send(title, message string, color func(string) string) {
	if n.mode == ModeNone {
		return
	}
	fmt.Fprintf(n.out, "\n%s: %s\n", color(title), color(message))

	// Desktop notifications are best effort
	if n.mode == ModeDesktop && n.sender != nil {
		_ = n.sender.Send(title, message)
	}
}

// SendNotification sends an informational notification
func (n *Notifier) SendNotification(title, message string) {
	n.send(title, message, Cyan)
}

// SendError sends an error notification
func (n *Notifier) SendError(title, message string) {
	n.send(title, message, Red)
}

// SendSuccess sends a success notification
func (n *Notifier) SendSuccess(title, message string) {
	n.send(title, message, Green)
}

// NotifyingReporter forwards every update to the wrapped reporter and sends
// notifications when a run completes or is held up by a quota.
type NotifyingReporter struct {
	bulk.Reporter
	Notifier    *Notifier
	OnComplete  bool
	OnRateLimit bool
}

func (r NotifyingReporter) Status(ev bulk.Event) {
	r.Reporter.Status(ev)

	switch ev.Kind {
	case bulk.EventFinished:
		if r.OnComplete {
			r.Notifier.SendSuccess("bskyfollow", ev.String())
		}
	case bulk.EventHourLimit, bulk.EventDailyLimit:
		if r.OnRateLimit {
			r.Notifier.SendNotification("bskyfollow", ev.String())
		}
	}
}
