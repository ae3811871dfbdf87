package sqlite

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
	"github.com/ericfisherdev/tempmail/internal/domain/port/driven"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestCredentialRepo_SetActiveAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, nil)
	ctx := context.Background()

	err := repo.SetActive(ctx, "a@d.com", "tokA")
	require.NoError(t, err)

	addr, cred, err := repo.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Address("a@d.com"), addr)
	assert.Equal(t, model.Credential("tokA"), cred)

	mapped, err := repo.Lookup(ctx, "a@d.com")
	require.NoError(t, err)
	assert.Equal(t, model.Credential("tokA"), mapped, "SetActive must upsert the mapping too")
}

func TestCredentialRepo_GetActiveEmpty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, nil)

	addr, cred, err := repo.GetActive(context.Background())
	require.NoError(t, err)
	assert.True(t, addr.IsZero())
	assert.True(t, cred.IsZero())
}

func TestCredentialRepo_LookupMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, nil)

	cred, err := repo.Lookup(context.Background(), "nobody@d.com")
	require.NoError(t, err)
	assert.Equal(t, model.Credential(""), cred)
}

func TestCredentialRepo_MappingLastWriteWins(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, nil)
	ctx := context.Background()

	require.NoError(t, repo.SaveMapping(ctx, "a@d.com", "old"))
	require.NoError(t, repo.SetActive(ctx, "a@d.com", "new"))

	cred, err := repo.Lookup(ctx, "a@d.com")
	require.NoError(t, err)
	assert.Equal(t, model.Credential("new"), cred)
}

func TestCredentialRepo_SaveMappingLeavesActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, nil)
	ctx := context.Background()

	require.NoError(t, repo.SetActive(ctx, "a@d.com", "tokA"))
	require.NoError(t, repo.SaveMapping(ctx, "b@d.com", "tokB"))

	addr, cred, err := repo.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Address("a@d.com"), addr)
	assert.Equal(t, model.Credential("tokA"), cred)
}

func TestCredentialRepo_ClearActiveKeepsMapping(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, nil)
	ctx := context.Background()

	require.NoError(t, repo.SetActive(ctx, "a@d.com", "tokA"))
	require.NoError(t, repo.ClearActive(ctx))

	addr, cred, err := repo.GetActive(ctx)
	require.NoError(t, err)
	assert.True(t, addr.IsZero())
	assert.True(t, cred.IsZero())

	mapped, err := repo.Lookup(ctx, "a@d.com")
	require.NoError(t, err)
	assert.Equal(t, model.Credential("tokA"), mapped)
}

func TestCredentialRepo_EncryptedAtRest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey)
	ctx := context.Background()

	require.NoError(t, repo.SetActive(ctx, "a@d.com", "secret-token"))

	var raw string
	err := db.Reader.QueryRowContext(ctx, `SELECT credential FROM address_credentials WHERE address = ?`, "a@d.com").Scan(&raw)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, encPrefix))
	assert.NotContains(t, raw, "secret-token")

	cred, err := repo.Lookup(ctx, "a@d.com")
	require.NoError(t, err)
	assert.Equal(t, model.Credential("secret-token"), cred)
}

func TestCredentialRepo_EncryptedWithoutKey(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, NewCredentialRepo(db, testKey).SaveMapping(ctx, "a@d.com", "secret"))

	_, err := NewCredentialRepo(db, nil).Lookup(ctx, "a@d.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
}
