// Package keyringstore implements the CredentialStore port on top of the
// operating system keyring.
package keyringstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/99designs/keyring"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
	"github.com/ericfisherdev/tempmail/internal/domain/port/driven"
)

const (
	serviceName   = "tempmail"
	activeItemKey = "active"
	mappingPrefix = "address:"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*Store)(nil)

// Store keeps the active slot and the address mapping as keyring items.
type Store struct {
	ring keyring.Keyring
}

type activeItem struct {
	Address    string `json:"address"`
	Credential string `json:"credential"`
}

// Open returns a Store backed by the first available OS keyring backend.
// fileDir is used by the encrypted-file fallback backend.
func Open(fileDir, filePassword string) (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(filePassword),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return New(ring), nil
}

// New wraps an already-opened keyring.
func New(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// SetActive writes the mapping first, then the active slot, so a crash
// between the two leaves a usable mapping rather than a dangling active slot.
func (s *Store) SetActive(ctx context.Context, addr model.Address, cred model.Credential) error {
	if err := s.SaveMapping(ctx, addr, cred); err != nil {
		return err
	}

	data, err := json.Marshal(activeItem{Address: string(addr), Credential: string(cred)})
	if err != nil {
		return fmt.Errorf("encoding active credential: %w", err)
	}
	if err := s.ring.Set(keyring.Item{Key: activeItemKey, Data: data}); err != nil {
		return fmt.Errorf("setting active credential: %w", err)
	}
	return nil
}

// GetActive returns the active address and credential, or zero values.
func (s *Store) GetActive(_ context.Context) (model.Address, model.Credential, error) {
	item, err := s.ring.Get(activeItemKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("getting active credential: %w", err)
	}

	var active activeItem
	if err := json.Unmarshal(item.Data, &active); err != nil {
		return "", "", fmt.Errorf("decoding active credential: %w", err)
	}
	return model.Address(active.Address), model.Credential(active.Credential), nil
}

// Lookup returns the mapped credential for addr, or "".
func (s *Store) Lookup(_ context.Context, addr model.Address) (model.Credential, error) {
	item, err := s.ring.Get(mappingPrefix + string(addr))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", addr, err)
	}
	return model.Credential(item.Data), nil
}

// SaveMapping upserts the mapping for addr.
func (s *Store) SaveMapping(_ context.Context, addr model.Address, cred model.Credential) error {
	err := s.ring.Set(keyring.Item{
		Key:         mappingPrefix + string(addr),
		Data:        []byte(cred),
		Label:       "tempmail " + string(addr),
		Description: "disposable mailbox credential",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", addr, err)
	}
	return nil
}

// ClearActive removes the active slot. Removing an absent slot is not an error.
// The file backend reports a missing item as the raw os.Remove error rather
// than ErrKeyNotFound.
func (s *Store) ClearActive(_ context.Context) error {
	err := s.ring.Remove(activeItemKey)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing active credential: %w", err)
	}
	return nil
}
