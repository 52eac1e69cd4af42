package ui

import (
	"fmt"
	"os/exec"
	"runtime"

	"igpicker/pkg/config"
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
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("igpicker").Show($toast)
	`, title, message)

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

// Notifier prints export and error events and, when enabled, raises a
// desktop notification for them
type Notifier struct {
	sender   NotificationSender
	enabled  bool
	onExport bool
	onError  bool
}

// NewNotifier creates a Notifier for the current platform
func NewNotifier(cfg config.NotificationConfig) *Notifier {
	var sender NotificationSender

	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	case "windows":
		sender = &WindowsNotificationSender{}
	}

	return NewNotifierWithSender(cfg, sender)
}

// NewNotifierWithSender creates a Notifier with an explicit sender
func NewNotifierWithSender(cfg config.NotificationConfig, sender NotificationSender) *Notifier {
	return &Notifier{
		sender:   sender,
		enabled:  cfg.Enabled,
		onExport: cfg.OnExport,
		onError:  cfg.OnError,
	}
}

// Exported reports a written export file
func (n *Notifier) Exported(path string, rows int) {
	msg := fmt.Sprintf("%d rows written to %s", rows, path)
	fmt.Fprintf(Out, "\n%s: %s\n", Green("Export complete"), Green(msg))
	if n.onExport {
		n.send("Export complete", msg)
	}
}

// Failed reports an error that ended a command
func (n *Notifier) Failed(title string, err error) {
	fmt.Fprintf(Out, "\n%s: %s\n", Red(title), Red(err.Error()))
	if n.onError {
		n.send(title, err.Error())
	}
}

func (n *Notifier) send(title, message string) {
	if !n.enabled || n.sender == nil {
		return
	}
	// desktop notifications are best effort
	_ = n.sender.Send(title, message)
}
