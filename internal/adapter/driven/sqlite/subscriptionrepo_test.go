package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
)

func TestSubscriptionRepo_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepo(db)

	sub, err := repo.GetCurrent(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestSubscriptionRepo_PutAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepo(db)
	ctx := context.Background()

	expires := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Put(ctx, model.Subscription{UserID: "u1", Plan: "pro", Status: "active", ExpiresAt: expires}))

	sub, err := repo.GetCurrent(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "pro", sub.Plan)
	assert.Equal(t, "active", sub.Status)
	assert.True(t, expires.Equal(sub.ExpiresAt))
}

func TestSubscriptionRepo_PutWithoutExpiry(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, model.Subscription{UserID: "u1", Status: "canceled"}))

	sub, err := repo.GetCurrent(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.True(t, sub.ExpiresAt.IsZero())
	assert.False(t, sub.Active(time.Now()))
}
