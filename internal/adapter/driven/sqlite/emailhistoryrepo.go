package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
	"github.com/ericfisherdev/tempmail/internal/domain/port/driven"
)

// scanWindow bounds how many raw rows ListRecent reads before dedup.
const scanWindow = 50

// Compile-time interface satisfaction check.
var _ driven.HistoryRecordStore = (*EmailHistoryRepo)(nil)

// EmailHistoryRepo is the SQLite implementation of the HistoryRecordStore
// port backing the server-persisted history API.
type EmailHistoryRepo struct {
	db *DB
}

// NewEmailHistoryRepo creates a new EmailHistoryRepo backed by the given DB.
func NewEmailHistoryRepo(db *DB) *EmailHistoryRepo {
	return &EmailHistoryRepo{db: db}
}

type emailHistoryRow struct {
	ID        string         `db:"id"`
	UserID    string         `db:"user_id"`
	Email     string         `db:"email"`
	JWT       sql.NullString `db:"jwt"`
	CreatedAt string         `db:"created_at"`
}

// Upsert removes any prior row for (userID, addr), inserts the address as the
// newest row, and trims the user's history to the newest keep rows. Rows with
// equal created_at are ordered by insertion sequence.
func (r *EmailHistoryRepo) Upsert(ctx context.Context, userID string, addr model.Address, cred model.Credential, keep int) error {
	err := r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		const deletePrior = `DELETE FROM email_history WHERE user_id = ? AND email = ?`
		if _, err := tx.ExecContext(ctx, deletePrior, userID, string(addr)); err != nil {
			return fmt.Errorf("delete prior: %w", err)
		}

		jwt := sql.NullString{String: string(cred), Valid: !cred.IsZero()}
		const insert = `INSERT INTO email_history (id, user_id, email, jwt) VALUES (?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), userID, string(addr), jwt); err != nil {
			return fmt.Errorf("insert: %w", err)
		}

		const trim = `DELETE FROM email_history
			WHERE user_id = ?
			  AND seq NOT IN (
			    SELECT seq FROM email_history
			    WHERE user_id = ?
			    ORDER BY created_at DESC, seq DESC
			    LIMIT ?
			  )`
		if _, err := tx.ExecContext(ctx, trim, userID, userID, keep); err != nil {
			return fmt.Errorf("trim: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert history %s: %w", addr, err)
	}
	return nil
}

// ListRecent returns up to limit distinct addresses for userID, newest first.
// Older duplicates of an address are skipped.
func (r *EmailHistoryRepo) ListRecent(ctx context.Context, userID string, limit int) ([]model.HistoryRecord, error) {
	const query = `SELECT id, user_id, email, jwt, created_at FROM email_history
		WHERE user_id = ?
		ORDER BY created_at DESC, seq DESC
		LIMIT ?`

	var rows []emailHistoryRow
	if err := r.db.Reader.SelectContext(ctx, &rows, query, userID, max(scanWindow, limit)); err != nil {
		return nil, fmt.Errorf("list history for user %s: %w", userID, err)
	}

	seen := make(map[string]struct{}, len(rows))
	records := make([]model.HistoryRecord, 0, min(limit, len(rows)))
	for _, row := range rows {
		if len(records) >= limit {
			break
		}
		if _, dup := seen[row.Email]; dup {
			continue
		}
		seen[row.Email] = struct{}{}

		createdAt, err := parseTime(row.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for history %s: %w", row.ID, err)
		}
		records = append(records, model.HistoryRecord{
			ID:         row.ID,
			UserID:     row.UserID,
			Address:    model.Address(row.Email),
			Credential: model.Credential(row.JWT.String),
			CreatedAt:  createdAt,
		})
	}
	return records, nil
}
