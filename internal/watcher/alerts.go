package watcher

import (
	"fmt"
	"strings"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

// ScoreChangeThreshold is the total-score movement that raises an info alert.
const ScoreChangeThreshold = 10

// Compare detects notable changes between two watch states and returns
// alerts, most severe first. Signals are visited in type enumeration order.
func Compare(prev, curr *WatchState) []Alert {
	var alerts []Alert

	alerts = append(alerts, compareCritical(prev, curr)...)
	alerts = append(alerts, compareWarning(prev, curr)...)
	alerts = append(alerts, compareInfo(prev, curr)...)

	return alerts
}

// compareCritical reports newly raised high-priority signals.
func compareCritical(prev, curr *WatchState) []Alert {
	var alerts []Alert
	for _, t := range crm.AllSignalTypes {
		s, ok := curr.Unresolved[t]
		if _, existed := prev.Unresolved[t]; !ok || existed || s.Priority != crm.PriorityHigh {
			continue
		}
		alerts = append(alerts, Alert{
			Level:   "critical",
			Title:   "New coaching signal: " + signalTitle(t),
			Message: s.Message,
			Time:    curr.Timestamp,
		})
	}
	return alerts
}

// compareWarning reports other new signals and escalations.
func compareWarning(prev, curr *WatchState) []Alert {
	var alerts []Alert
	for _, t := range crm.AllSignalTypes {
		s, ok := curr.Unresolved[t]
		if !ok {
			continue
		}
		old, existed := prev.Unresolved[t]
		switch {
		case !existed && s.Priority != crm.PriorityHigh:
			alerts = append(alerts, Alert{
				Level:   "warning",
				Title:   "New coaching signal: " + signalTitle(t),
				Message: s.Message,
				Time:    curr.Timestamp,
			})
		case existed && s.Priority.Rank() < old.Priority.Rank():
			alerts = append(alerts, Alert{
				Level:   "warning",
				Title:   "Signal escalated: " + signalTitle(t),
				Message: fmt.Sprintf("Priority raised from %s to %s. %s", old.Priority, s.Priority, s.Message),
				Time:    curr.Timestamp,
			})
		}
	}
	return alerts
}

// compareInfo reports cleared signals and large score movements. A signal
// clears only when resolved; the cycle never resolves one on its own.
func compareInfo(prev, curr *WatchState) []Alert {
	var alerts []Alert
	for _, t := range crm.AllSignalTypes {
		if _, was := prev.Unresolved[t]; !was {
			continue
		}
		if _, still := curr.Unresolved[t]; still {
			continue
		}
		alerts = append(alerts, Alert{
			Level:   "info",
			Title:   "Signal cleared: " + signalTitle(t),
			Message: "No longer open",
			Time:    curr.Timestamp,
		})
	}

	delta := curr.Metrics.Total - prev.Metrics.Total
	if delta >= ScoreChangeThreshold || -delta >= ScoreChangeThreshold {
		direction := "up"
		if delta < 0 {
			direction = "down"
		}
		alerts = append(alerts, Alert{
			Level: "info",
			Title: "Total score " + direction,
			Message: fmt.Sprintf("Total %d (was %d): HIR %d, RTR %d, BCR %d, PHR %d",
				curr.Metrics.Total, prev.Metrics.Total,
				curr.Metrics.HIR, curr.Metrics.RTR, curr.Metrics.BCR, curr.Metrics.PHR),
			Time: curr.Timestamp,
		})
	}
	return alerts
}

func signalTitle(t crm.SignalType) string {
	return strings.ReplaceAll(string(t), "_", " ")
}
