package model

import "time"

// DiscoveryCandidate is a discovered-but-unmanaged application reported by the
// tenant inventory, awaiting a claim into the managed catalog.
type DiscoveryCandidate struct {
	DetectedAt        time.Time
	ID                string
	Name              string
	PublisherName     string
	ResolvedPackageID string // package reference resolved by the matcher, empty if unmatched
	Match             MatchTier
	Confidence        float64 // matcher score, 0.0-1.0
	DeviceCount       int64
	Ignored           bool // administratively excluded from claiming
}

// Identity returns the stable discovered-app id.
func (c DiscoveryCandidate) Identity() string { return c.ID }

// DisplayName returns the human-readable application name.
func (c DiscoveryCandidate) DisplayName() string { return c.Name }

// Publisher returns the reported publisher name.
func (c DiscoveryCandidate) Publisher() string { return c.PublisherName }

// TierRank returns the match tier rank.
func (c DiscoveryCandidate) TierRank() int { return c.Match.Rank() }

// Priority reports whether the matcher confirmed this candidate.
func (c DiscoveryCandidate) Priority() bool { return c.Match == MatchConfirmed }

// Metric returns the number of devices the application was detected on.
func (c DiscoveryCandidate) Metric() int64 { return c.DeviceCount }

// ObservedAt returns when the application was first detected.
func (c DiscoveryCandidate) ObservedAt() time.Time { return c.DetectedAt }

// ActionEligible reports whether the candidate can be claimed: the matcher must
// have confirmed a package reference and the candidate must not be ignored.
func (c DiscoveryCandidate) ActionEligible() bool {
	return c.Match == MatchConfirmed && c.ResolvedPackageID != "" && !c.Ignored
}

// SelectionKeys returns the identifiers checked against the selection store.
// A discovery candidate counts as claimed when either its own id or its
// resolved package reference is already selected.
func (c DiscoveryCandidate) SelectionKeys() []string {
	return []string{c.ID, c.ResolvedPackageID}
}
