// Package classify derives discrete classification tiers for candidates and
// applies the static exclusion rules that run before anything is displayed.
package classify

import (
	"strings"

	"github.com/fleetdeck/fleetdeck/internal/model"
)

// VendorOwned reports whether a candidate belongs to the platform vendor and
// must be filtered out before display. The rule is case-insensitive: the
// publisher contains "microsoft", or the resolved package id starts with
// "microsoft.", or the display name starts with "microsoft ".
func VendorOwned(publisher, resolvedID, displayName string) bool {
	if strings.Contains(strings.ToLower(publisher), "microsoft") {
		return true
	}
	if strings.HasPrefix(strings.ToLower(resolvedID), "microsoft.") {
		return true
	}
	return strings.HasPrefix(strings.ToLower(displayName), "microsoft ")
}

// PrepareDiscovered applies vendor exclusion and deduplicates by identity,
// keeping the first occurrence. The input slice is not modified.
func PrepareDiscovered(candidates []model.DiscoveryCandidate) []model.DiscoveryCandidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]model.DiscoveryCandidate, 0, len(candidates))

	for _, c := range candidates {
		if VendorOwned(c.PublisherName, c.ResolvedPackageID, c.Name) {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}

	return out
}

// PrepareUpdates applies vendor exclusion, deduplicates by identity keeping
// the first occurrence, and derives each candidate's version-delta tier.
func PrepareUpdates(candidates []model.UpdateCandidate) []model.UpdateCandidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]model.UpdateCandidate, 0, len(candidates))

	for _, c := range candidates {
		if VendorOwned(c.PublisherName, c.PackageID, c.Name) {
			continue
		}
		id := c.Identity()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		c.Delta = TierForVersions(c.CurrentVersion, c.LatestVersion)
		out = append(out, c)
	}

	return out
}
