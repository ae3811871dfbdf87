package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
	"github.com/ericfisherdev/tempmail/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.LocalHistoryStore = (*LocalHistoryRepo)(nil)

// LocalHistoryRepo is the SQLite implementation of the LocalHistoryStore port.
// The list is stored as (position, address) rows; position 0 is most recent.
type LocalHistoryRepo struct {
	db *DB
}

// NewLocalHistoryRepo creates a new LocalHistoryRepo backed by the given DB.
func NewLocalHistoryRepo(db *DB) *LocalHistoryRepo {
	return &LocalHistoryRepo{db: db}
}

// Load returns the stored ledger, most recent first. An empty ledger is a
// nil slice with no error.
func (r *LocalHistoryRepo) Load(ctx context.Context) ([]model.Address, error) {
	const query = `SELECT address FROM local_history ORDER BY position ASC`
	var rows []string
	if err := r.db.Reader.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("load local history: %w", err)
	}

	addrs := make([]model.Address, 0, len(rows))
	for _, a := range rows {
		addrs = append(addrs, model.Address(a))
	}
	return addrs, nil
}

// Save replaces the whole ledger with addrs in one transaction.
func (r *LocalHistoryRepo) Save(ctx context.Context, addrs []model.Address) error {
	err := r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM local_history`); err != nil {
			return fmt.Errorf("clear: %w", err)
		}

		const insert = `INSERT INTO local_history (position, address) VALUES (?, ?)`
		for i, a := range addrs {
			if _, err := tx.ExecContext(ctx, insert, i, string(a)); err != nil {
				return fmt.Errorf("insert %s: %w", a, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save local history: %w", err)
	}
	return nil
}
