package classify

import (
	"strconv"
	"strings"

	"github.com/fleetdeck/fleetdeck/internal/model"
)

// TierForVersions derives the update tier from a current/latest version pair.
// Dotted components are compared numerically left to right and the first
// unequal pair decides the tier: first component major, second minor, anything
// beyond patch. A shorter version is padded with zeros, and equal versions
// fall through to patch by convention.
func TierForVersions(current, latest string) model.UpdateTier {
	cur := splitVersion(current)
	lat := splitVersion(latest)

	n := len(cur)
	if len(lat) > n {
		n = len(lat)
	}

	for i := 0; i < n; i++ {
		if versionComponent(cur, i) == versionComponent(lat, i) {
			continue
		}
		switch i {
		case 0:
			return model.UpdateMajor
		case 1:
			return model.UpdateMinor
		default:
			return model.UpdatePatch
		}
	}

	return model.UpdatePatch
}

// splitVersion strips a leading v/V and splits the remainder on dots.
func splitVersion(version string) []string {
	version = strings.TrimSpace(version)
	version = strings.TrimPrefix(version, "v")
	version = strings.TrimPrefix(version, "V")
	if version == "" {
		return nil
	}
	return strings.Split(version, ".")
}

// versionComponent returns the numeric value of component i, treating missing
// or unparsable components as 0. A component like "3-beta" compares by its
// leading digits.
func versionComponent(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}

	part := parts[i]
	end := 0
	for end < len(part) && part[end] >= '0' && part[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}

	n, err := strconv.Atoi(part[:end])
	if err != nil {
		return 0
	}
	return n
}
