package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

type notifySend struct{}

func (notifySend) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name=xhsclient", title, message).Run()
}

type osascript struct{}

func (osascript) Send(title, message string) error {
	script := fmt.Sprintf("display notification %s with title %s", appleQuote(message), appleQuote(title))
	return exec.Command("osascript", "-e", script).Run()
}

func appleQuote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

// Notifier announces the end of long batch runs on the desktop as well as
// on the printer
type Notifier struct {
	sender  NotificationSender
	printer *Printer
}

// NewNotifier picks a sender for the current platform. Platforms without
// one only get the printed line.
func NewNotifier(p *Printer) *Notifier {
	var sender NotificationSender
	switch runtime.GOOS {
	case "linux":
		sender = notifySend{}
	case "darwin":
		sender = osascript{}
	}
	return &Notifier{sender: sender, printer: p}
}

// NewNotifierWithSender is used by tests
func NewNotifierWithSender(p *Printer, sender NotificationSender) *Notifier {
	return &Notifier{sender: sender, printer: p}
}

func (n *Notifier) send(title, message string) {
	if n.sender != nil {
		// a missing notify-send must not fail the run
		_ = n.sender.Send(title, message)
	}
}

// Success reports a finished run
func (n *Notifier) Success(title, message string) {
	n.printer.Success("%s: %s", title, message)
	n.send(title, message)
}

// Failure reports a run that ended with errors
func (n *Notifier) Failure(title, message string) {
	n.printer.Error(title, fmt.Errorf("%s", message))
	n.send(title, message)
}
