package model

import "time"

// HistoryRecord is one server-persisted row of a user's cloud ledger.
// Credential is empty for legacy rows written before tokens were stored.
type HistoryRecord struct {
	ID         string
	UserID     string
	Address    Address
	Credential Credential
	CreatedAt  time.Time
}

// Entry converts the record into its ledger variant.
func (r HistoryRecord) Entry() HistoryEntry {
	return NewHistoryEntry(r.Address, r.Credential)
}

// Subscription is the billing-side view of a user needed to resolve tier.
// Billing itself lives elsewhere; only status and expiry are read here.
type Subscription struct {
	UserID    string
	Plan      string
	Status    string
	ExpiresAt time.Time
}

// Active reports whether the subscription grants premium at now.
func (s Subscription) Active(now time.Time) bool {
	if s.Status != "active" {
		return false
	}
	return s.ExpiresAt.IsZero() || s.ExpiresAt.After(now)
}
