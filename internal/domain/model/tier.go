package model

// Tier is the subscription capability of the current user.
type Tier int

const (
	// TierAnonymous means no session: free-equivalent, no cloud ledger access.
	TierAnonymous Tier = iota
	// TierFree is a signed-in user without an active subscription.
	TierFree
	// TierPremium is a paying user; the cloud ledger is authoritative.
	TierPremium
)

// Ledger capacities per tier.
const (
	FreeHistoryCapacity    = 2
	PremiumHistoryCapacity = 10
	CloudHistoryCapacity   = 10
)

// IsPremium reports whether the tier grants cloud sync.
func (t Tier) IsPremium() bool {
	return t == TierPremium
}

// Capacity returns the local ledger capacity for the tier.
func (t Tier) Capacity() int {
	if t == TierPremium {
		return PremiumHistoryCapacity
	}
	return FreeHistoryCapacity
}

// String returns a human-readable name for the tier.
func (t Tier) String() string {
	switch t {
	case TierAnonymous:
		return "anonymous"
	case TierFree:
		return "free"
	case TierPremium:
		return "premium"
	default:
		return "unknown"
	}
}
