package coaching

import (
	"sort"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

// RankSignals keeps the first signal of each type and sorts by priority,
// then by signal type enumeration order.
func RankSignals(signals []Signal) []Signal {
	seen := make(map[crm.SignalType]bool, len(signals))
	sorted := make([]Signal, 0, len(signals))
	for _, s := range signals {
		if seen[s.Type] {
			continue
		}
		seen[s.Type] = true
		sorted = append(sorted, s)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if ri, rj := sorted[i].Priority.Rank(), sorted[j].Priority.Rank(); ri != rj {
			return ri < rj
		}
		return signalIndex(sorted[i].Type) < signalIndex(sorted[j].Type)
	})
	return sorted
}

func signalIndex(t crm.SignalType) int {
	for i, v := range crm.AllSignalTypes {
		if v == t {
			return i
		}
	}
	return len(crm.AllSignalTypes)
}
