package watcher

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
)

// Notifier delivers alerts. With Desktop set it uses osascript on macOS
// and notify-send on Linux, falling back to Out when neither works.
type Notifier struct {
	Desktop bool
	// MinLevel drops alerts below this level ("info", "warning", "critical").
	MinLevel string
	Out      io.Writer
}

// NewNotifier creates a Notifier that writes fallbacks to stderr.
func NewNotifier(desktop bool, minLevel string) *Notifier {
	return &Notifier{Desktop: desktop, MinLevel: minLevel, Out: os.Stderr}
}

// Notify delivers the alert if it meets MinLevel.
func (n *Notifier) Notify(alert Alert) error {
	if levelRank(alert.Level) < levelRank(n.MinLevel) {
		return nil
	}
	if !n.Desktop {
		return n.fallback(alert)
	}
	switch runtime.GOOS {
	case "darwin":
		return n.notifyMacOS(alert)
	case "linux":
		return n.notifyLinux(alert)
	default:
		return n.fallback(alert)
	}
}

func (n *Notifier) notifyMacOS(alert Alert) error {
	script := fmt.Sprintf(
		`display notification %q with title "fieldcoach" subtitle %q`,
		alert.Message, alert.Title,
	)
	if err := exec.Command("osascript", "-e", script).Run(); err != nil {
		return n.fallback(alert)
	}
	return nil
}

func (n *Notifier) notifyLinux(alert Alert) error {
	if _, err := exec.LookPath("notify-send"); err != nil {
		return n.fallback(alert)
	}
	urgency := "normal"
	if alert.Level == "critical" {
		urgency = "critical"
	}
	cmd := exec.Command("notify-send", "-u", urgency, "fieldcoach: "+alert.Title, alert.Message)
	if err := cmd.Run(); err != nil {
		return n.fallback(alert)
	}
	return nil
}

func (n *Notifier) fallback(alert Alert) error {
	out := n.Out
	if out == nil {
		out = os.Stderr
	}
	_, err := fmt.Fprintf(out, "[%s] %s: %s\n", alert.Level, alert.Title, alert.Message)
	return err
}

func levelRank(level string) int {
	switch level {
	case "critical":
		return 2
	case "warning":
		return 1
	default:
		return 0
	}
}
