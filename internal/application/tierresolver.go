package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
	"github.com/ericfisherdev/tempmail/internal/domain/port/driven"
)

// TierResolver determines the user's tier once per session. The first result,
// successful or not, is memoized; nothing re-checks the tier mid-session.
type TierResolver struct {
	checker driven.SubscriptionChecker

	once sync.Once
	tier model.Tier
}

// NewTierResolver creates a TierResolver. A nil checker resolves to
// TierAnonymous.
func NewTierResolver(checker driven.SubscriptionChecker) *TierResolver {
	return &TierResolver{checker: checker}
}

// Resolve returns the memoized tier, calling the subscription checker on the
// first call only. Checker failures resolve to the restrictive tier.
func (r *TierResolver) Resolve(ctx context.Context) model.Tier {
	r.once.Do(func() {
		r.tier = r.resolve(ctx)
		slog.Info("tier resolved", "tier", r.tier)
	})
	return r.tier
}

func (r *TierResolver) resolve(ctx context.Context) model.Tier {
	if r.checker == nil {
		return model.TierAnonymous
	}

	premium, err := r.checker.IsPremium(ctx)
	if err != nil {
		if errors.Is(err, model.ErrUnauthenticated) {
			return model.TierAnonymous
		}
		slog.Warn("subscription check failed, assuming free tier", "error", err)
		return model.TierFree
	}
	if premium {
		return model.TierPremium
	}
	return model.TierFree
}
