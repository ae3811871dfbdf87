package driven

import (
	"context"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
)

// HistoryRecordStore is the server-side persistence port behind the history
// API. Rows are keyed by (user, address).
type HistoryRecordStore interface {
	// Upsert deletes any prior row for (userID, addr), inserts a new newest
	// row, then trims the user's rows to keep newest rows.
	Upsert(ctx context.Context, userID string, addr model.Address, cred model.Credential, keep int) error

	// ListRecent returns up to limit distinct addresses for userID,
	// newest first.
	ListRecent(ctx context.Context, userID string, limit int) ([]model.HistoryRecord, error)
}

// SubscriptionStore reads the billing-side subscription state of a user.
// Returns (nil, nil) when the user has no subscription.
type SubscriptionStore interface {
	GetCurrent(ctx context.Context, userID string) (*model.Subscription, error)
	Put(ctx context.Context, sub model.Subscription) error
}
