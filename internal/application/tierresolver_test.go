package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/tempmail/internal/application"
	"github.com/ericfisherdev/tempmail/internal/domain/model"
)

func TestTierResolver(t *testing.T) {
	tests := []struct {
		name    string
		premium bool
		err     error
		want    model.Tier
	}{
		{"premium", true, nil, model.TierPremium},
		{"free", false, nil, model.TierFree},
		{"transport failure is free", false, model.NewError(model.KindTransport, "check", errors.New("eof")), model.TierFree},
		{"untyped failure is free", true, errors.New("boom"), model.TierFree},
		{"no session is anonymous", false, model.NewError(model.KindUnauthenticated, "check", model.ErrUnauthenticated), model.TierAnonymous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &mockSubscriptionChecker{premium: tt.premium, err: tt.err}
			resolver := application.NewTierResolver(checker)

			assert.Equal(t, tt.want, resolver.Resolve(context.Background()))
		})
	}
}

func TestTierResolver_Memoized(t *testing.T) {
	checker := &mockSubscriptionChecker{err: errors.New("down")}
	resolver := application.NewTierResolver(checker)
	ctx := context.Background()

	assert.Equal(t, model.TierFree, resolver.Resolve(ctx))

	checker.err = nil
	checker.premium = true
	assert.Equal(t, model.TierFree, resolver.Resolve(ctx))
	assert.Equal(t, 1, checker.calls)
}

func TestTierResolver_NilChecker(t *testing.T) {
	resolver := application.NewTierResolver(nil)
	assert.Equal(t, model.TierAnonymous, resolver.Resolve(context.Background()))
}
