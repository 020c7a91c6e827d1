// Package pipeline is the pure filter and sort layer between the classified
// candidate set and the display. It never mutates its input; every call
// re-derives a fresh ordered subset from the full set and the filter state.
package pipeline

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/fleetdeck/fleetdeck/internal/model"
)

// Mode selects the sort key.
type Mode string

// Sort modes.
const (
	ModeName     Mode = "name"
	ModeSeverity Mode = "severity"
	ModeTier     Mode = "tier"
	ModeDetected Mode = "detected"
	ModeDevices  Mode = "devices"
)

// Order selects ascending or descending for the numeric/timestamp modes.
type Order string

// Sort orders.
const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// State is the filter and sort configuration for one view.
type State struct {
	// Query is matched case-insensitively against name, publisher and identity.
	Query string
	// Tiers restricts the view to the given tier ranks. Nil means all tiers.
	Tiers map[int]bool
	// ShowClaimed includes candidates already present in the selection store.
	ShowClaimed bool
	Sort        Mode
	Order       Order
}

var collator = collate.New(language.Und, collate.IgnoreCase)

// Apply filters and orders the candidate set. claimed derives claim state for
// a candidate against the current selection snapshot; it may be nil when no
// selection store is in play.
func Apply[T model.Candidate](items []T, st State, claimed func(T) bool) []T {
	query := strings.ToLower(strings.TrimSpace(st.Query))

	out := make([]T, 0, len(items))
	for _, c := range items {
		if query != "" && !matchesQuery(c, query) {
			continue
		}
		if st.Tiers != nil && !st.Tiers[c.TierRank()] {
			continue
		}
		if !st.ShowClaimed && claimed != nil && claimed(c) {
			continue
		}
		out = append(out, c)
	}

	sortCandidates(out, st)
	return out
}

func matchesQuery(c model.Candidate, query string) bool {
	return strings.Contains(strings.ToLower(c.DisplayName()), query) ||
		strings.Contains(strings.ToLower(c.Publisher()), query) ||
		strings.Contains(strings.ToLower(c.Identity()), query)
}

// sortCandidates orders the subset in place. Stable sorting is load-bearing:
// the detected and devices modes have no secondary key, so equal values keep
// their incoming order.
func sortCandidates[T model.Candidate](items []T, st State) {
	desc := st.Order == OrderDesc

	switch st.Sort {
	case ModeName:
		sort.SliceStable(items, func(i, j int) bool {
			return nameLess(items[i], items[j])
		})
	case ModeSeverity:
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Priority() != items[j].Priority() {
				return items[i].Priority()
			}
			return nameLess(items[i], items[j])
		})
	case ModeTier:
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].TierRank() != items[j].TierRank() {
				return items[i].TierRank() < items[j].TierRank()
			}
			return nameLess(items[i], items[j])
		})
	case ModeDetected:
		sort.SliceStable(items, func(i, j int) bool {
			if desc {
				return items[j].ObservedAt().Before(items[i].ObservedAt())
			}
			return items[i].ObservedAt().Before(items[j].ObservedAt())
		})
	case ModeDevices:
		sort.SliceStable(items, func(i, j int) bool {
			if desc {
				return items[i].Metric() > items[j].Metric()
			}
			return items[i].Metric() < items[j].Metric()
		})
	}
}

func nameLess(a, b model.Candidate) bool {
	return collator.CompareString(a.DisplayName(), b.DisplayName()) < 0
}
