package model

// MatchTier is the server-assigned confidence bucket for a discovery candidate.
type MatchTier string

// Match tier constants.
const (
	MatchConfirmed MatchTier = "matched"
	MatchPartial   MatchTier = "partial"
	MatchNone      MatchTier = "unmatched"
	MatchPending   MatchTier = "pending"
)

// Rank returns the fixed sort rank: matched < partial < unmatched < pending.
func (t MatchTier) Rank() int {
	switch t {
	case MatchConfirmed:
		return 0
	case MatchPartial:
		return 1
	case MatchNone:
		return 2
	case MatchPending:
		return 3
	default:
		return 4
	}
}

// UpdateTier is the semantic-version-delta bucket for an update candidate.
type UpdateTier string

// Update tier constants.
const (
	UpdateMajor UpdateTier = "major"
	UpdateMinor UpdateTier = "minor"
	UpdatePatch UpdateTier = "patch"
)

// Rank returns the fixed sort rank: major < minor < patch.
func (t UpdateTier) Rank() int {
	switch t {
	case UpdateMajor:
		return 0
	case UpdateMinor:
		return 1
	case UpdatePatch:
		return 2
	default:
		return 3
	}
}
