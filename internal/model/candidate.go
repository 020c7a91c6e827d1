// Package model defines the core domain models used throughout the application.
package model

import "time"

// Candidate is the unit of work for the batch engine: one discovered-but-unmanaged
// application or one available update. The two concrete kinds share this contract.
//
// Identity is stable and unique within a fetch cycle and is the sole key used for
// deduplication and batch status tracking. It is never recomputed from display fields.
type Candidate interface {
	Identity() string
	DisplayName() string
	Publisher() string

	// TierRank returns the fixed rank of the candidate's classification tier,
	// lower ranks sorting first.
	TierRank() int

	// Priority reports whether the candidate sorts first in severity mode
	// (a confirmed match, or a critical update).
	Priority() bool

	// Metric returns the device count associated with the candidate.
	Metric() int64

	// ObservedAt returns when the candidate was detected or released.
	ObservedAt() time.Time

	// ActionEligible reports whether the candidate carries enough information to
	// execute the bulk action and is not excluded by policy.
	ActionEligible() bool

	// SelectionKeys returns the identifiers checked against the selection store
	// when deriving claim state.
	SelectionKeys() []string
}

// Claimed reports whether the candidate is present in the given selection-store
// snapshot. Claim state is derived on every read and never cached on the entity;
// the selection store is the single source of truth and can change independently.
func Claimed(c Candidate, selection map[string]struct{}) bool {
	for _, key := range c.SelectionKeys() {
		if key == "" {
			continue
		}
		if _, ok := selection[key]; ok {
			return true
		}
	}
	return false
}
