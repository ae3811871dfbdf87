package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
	"github.com/ericfisherdev/tempmail/internal/domain/port/driven"
)

// encPrefix marks a stored value as AES-256-GCM ciphertext.
const encPrefix = "enc:v1:"

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port.
// When a key is configured, tokens are encrypted with AES-256-GCM before
// write; without a key they are stored as-is.
type CredentialRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil stores plaintext.
}

// NewCredentialRepo creates a new CredentialRepo. key must be 32 bytes for
// AES-256-GCM, or nil to store tokens unencrypted.
func NewCredentialRepo(db *DB, key []byte) *CredentialRepo {
	return &CredentialRepo{db: db, key: key}
}

// SetActive replaces the active slot and upserts the address mapping in a
// single transaction.
func (r *CredentialRepo) SetActive(ctx context.Context, addr model.Address, cred model.Credential) error {
	stored, err := r.encrypt(string(cred))
	if err != nil {
		return err
	}

	err = r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		const activeQuery = `INSERT OR REPLACE INTO active_credential (id, address, credential, updated_at) VALUES (1, ?, ?, CURRENT_TIMESTAMP)`
		if _, err := tx.ExecContext(ctx, activeQuery, string(addr), stored); err != nil {
			return err
		}

		const mappingQuery = `INSERT OR REPLACE INTO address_credentials (address, credential, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`
		if _, err := tx.ExecContext(ctx, mappingQuery, string(addr), stored); err != nil {
			return fmt.Errorf("mapping: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set active credential %s: %w", addr, err)
	}
	return nil
}

// GetActive returns the active address and credential, or zero values when
// the slot is empty.
func (r *CredentialRepo) GetActive(ctx context.Context) (model.Address, model.Credential, error) {
	const query = `SELECT address, credential FROM active_credential WHERE id = 1`
	var addr, stored string
	err := r.db.Reader.QueryRowContext(ctx, query).Scan(&addr, &stored)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("get active credential: %w", err)
	}

	plaintext, err := r.decrypt(stored)
	if err != nil {
		return "", "", fmt.Errorf("decrypt active credential: %w", err)
	}
	return model.Address(addr), model.Credential(plaintext), nil
}

// Lookup returns the mapped credential for addr, or "" if none is stored.
func (r *CredentialRepo) Lookup(ctx context.Context, addr model.Address) (model.Credential, error) {
	const query = `SELECT credential FROM address_credentials WHERE address = ?`
	var stored string
	err := r.db.Reader.QueryRowContext(ctx, query, string(addr)).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup credential %s: %w", addr, err)
	}

	plaintext, err := r.decrypt(stored)
	if err != nil {
		return "", fmt.Errorf("decrypt credential %s: %w", addr, err)
	}
	return model.Credential(plaintext), nil
}

// SaveMapping upserts the mapping for addr. Last write wins.
func (r *CredentialRepo) SaveMapping(ctx context.Context, addr model.Address, cred model.Credential) error {
	stored, err := r.encrypt(string(cred))
	if err != nil {
		return err
	}

	const query = `INSERT OR REPLACE INTO address_credentials (address, credential, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`
	if _, err := r.db.Writer.ExecContext(ctx, query, string(addr), stored); err != nil {
		return fmt.Errorf("save credential mapping %s: %w", addr, err)
	}
	return nil
}

// ClearActive empties the active slot. Mappings are kept.
func (r *CredentialRepo) ClearActive(ctx context.Context) error {
	const query = `DELETE FROM active_credential WHERE id = 1`
	if _, err := r.db.Writer.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("clear active credential: %w", err)
	}
	return nil
}

// encrypt encrypts plaintext using AES-256-GCM and returns encPrefix followed by
// a base64-encoded string containing the nonce (12 bytes) prepended to the
// ciphertext. Without a key the plaintext is returned unchanged.
func (r *CredentialRepo) encrypt(plaintext string) (string, error) {
	if r.key == nil {
		return plaintext, nil
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return encPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt reverses encrypt. Values without encPrefix are returned as-is.
func (r *CredentialRepo) decrypt(stored string) (string, error) {
	encoded, ok := strings.CutPrefix(stored, encPrefix)
	if !ok {
		return stored, nil
	}
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}
