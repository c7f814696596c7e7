package watcher

import (
	"bytes"
	"testing"
	"time"
)

func TestNotifier_FallbackWritesAlert(t *testing.T) {
	var buf bytes.Buffer
	n := &Notifier{Out: &buf}

	err := n.Notify(Alert{Level: "warning", Title: "New coaching signal: interest drop", Message: "fell 75%", Time: time.Now()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "[warning] New coaching signal: interest drop: fell 75%\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestNotifier_MinLevel(t *testing.T) {
	var buf bytes.Buffer
	n := &Notifier{Out: &buf, MinLevel: "warning"}

	if err := n.Notify(Alert{Level: "info", Title: "Signal cleared"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected info alert to be dropped, got %q", buf.String())
	}

	if err := n.Notify(Alert{Level: "critical", Title: "New coaching signal"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected critical alert to be written")
	}
}

func TestNotifier_DesktopDoesNotPanic(t *testing.T) {
	var buf bytes.Buffer
	n := &Notifier{Desktop: true, Out: &buf}
	// The result depends on osascript or notify-send availability.
	_ = n.Notify(Alert{Level: "info", Title: "Total score up", Message: "Total 70 (was 55)"})
}
