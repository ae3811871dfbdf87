package driven

import (
	"context"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
)

// LocalHistoryStore persists the client-local ledger as one ordered list,
// most-recent-first. Every write replaces the whole list.
type LocalHistoryStore interface {
	Load(ctx context.Context) ([]model.Address, error)
	Save(ctx context.Context, addrs []model.Address) error
}

// CloudHistory is the driven port for the server-persisted ledger of the
// signed-in user. Without a session both methods fail with
// KindUnauthenticated.
type CloudHistory interface {
	// Fetch returns the cloud ledger, most-recent-first.
	Fetch(ctx context.Context) ([]model.HistoryEntry, error)

	// Push upserts addr (and its credential, possibly empty) as the newest
	// entry. The server dedups and trims to model.CloudHistoryCapacity.
	Push(ctx context.Context, addr model.Address, cred model.Credential) error
}

// SubscriptionChecker reports whether the signed-in user is premium.
// It returns a KindUnauthenticated error when there is no session.
type SubscriptionChecker interface {
	IsPremium(ctx context.Context) (bool, error)
}
