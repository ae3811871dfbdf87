package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by encrypted CredentialStore adapters
// when a stored value is encrypted but no key was configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set TEMPMAIL_SECRET_KEY")

// CredentialStore is the driven port for the client-local credential cache:
// one active slot plus a persisted address→credential mapping. Absence is
// reported as the zero value with a nil error, never as an error.
type CredentialStore interface {
	// SetActive replaces the active slot and upserts the mapping for addr.
	// The two writes are applied together.
	SetActive(ctx context.Context, addr model.Address, cred model.Credential) error

	// GetActive returns the active address and credential, or zero values.
	GetActive(ctx context.Context) (model.Address, model.Credential, error)

	// Lookup reads the mapping only. It does not touch the active slot.
	Lookup(ctx context.Context, addr model.Address) (model.Credential, error)

	// SaveMapping upserts the mapping for addr without touching the active slot.
	SaveMapping(ctx context.Context, addr model.Address, cred model.Credential) error

	// ClearActive empties the active slot. The mapping is kept.
	ClearActive(ctx context.Context) error
}
