package model

import "time"

// UpdateCandidate is one available version update for a managed package in a tenant.
type UpdateCandidate struct {
	ReleasedAt     time.Time
	PackageID      string
	TenantID       string
	Name           string
	PublisherName  string
	CurrentVersion string
	LatestVersion  string
	Delta          UpdateTier // derived from the version pair at classification time
	DeviceCount    int64
	Critical       bool // flagged as a security-relevant update
	Pinned         bool // version pinned by policy, never auto-updated
	Ignored        bool
}

// Identity returns the composite package/tenant key.
func (c UpdateCandidate) Identity() string { return c.PackageID + "/" + c.TenantID }

// DisplayName returns the human-readable package name.
func (c UpdateCandidate) DisplayName() string { return c.Name }

// Publisher returns the package publisher name.
func (c UpdateCandidate) Publisher() string { return c.PublisherName }

// TierRank returns the version-delta tier rank.
func (c UpdateCandidate) TierRank() int { return c.Delta.Rank() }

// Priority reports whether the update is flagged critical.
func (c UpdateCandidate) Priority() bool { return c.Critical }

// Metric returns the number of devices pending this update.
func (c UpdateCandidate) Metric() int64 { return c.DeviceCount }

// ObservedAt returns the release time of the latest version.
func (c UpdateCandidate) ObservedAt() time.Time { return c.ReleasedAt }

// ActionEligible reports whether the update can be triggered: not pinned, not
// ignored, and the versions actually differ.
func (c UpdateCandidate) ActionEligible() bool {
	return !c.Pinned && !c.Ignored && c.CurrentVersion != c.LatestVersion
}

// SelectionKeys returns the identifiers checked against the selection store.
func (c UpdateCandidate) SelectionKeys() []string {
	return []string{c.Identity()}
}
