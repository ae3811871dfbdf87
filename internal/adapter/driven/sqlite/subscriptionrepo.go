package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
	"github.com/ericfisherdev/tempmail/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SubscriptionStore = (*SubscriptionRepo)(nil)

// SubscriptionRepo is the SQLite implementation of the SubscriptionStore port.
type SubscriptionRepo struct {
	db *DB
}

// NewSubscriptionRepo creates a new SubscriptionRepo backed by the given DB.
func NewSubscriptionRepo(db *DB) *SubscriptionRepo {
	return &SubscriptionRepo{db: db}
}

type subscriptionRow struct {
	UserID    string         `db:"user_id"`
	Plan      string         `db:"plan"`
	Status    string         `db:"status"`
	ExpiresAt sql.NullString `db:"expires_at"`
}

// GetCurrent returns the user's subscription, or nil if there is none.
func (r *SubscriptionRepo) GetCurrent(ctx context.Context, userID string) (*model.Subscription, error) {
	const query = `SELECT user_id, plan, status, expires_at FROM subscriptions WHERE user_id = ?`
	var row subscriptionRow
	err := r.db.Reader.GetContext(ctx, &row, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription for user %s: %w", userID, err)
	}

	sub := &model.Subscription{
		UserID: row.UserID,
		Plan:   row.Plan,
		Status: row.Status,
	}
	if row.ExpiresAt.Valid && row.ExpiresAt.String != "" {
		sub.ExpiresAt, err = parseTime(row.ExpiresAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse expires_at for user %s: %w", userID, err)
		}
	}
	return sub, nil
}

// Put inserts or replaces the user's subscription row.
func (r *SubscriptionRepo) Put(ctx context.Context, sub model.Subscription) error {
	var expires sql.NullString
	if !sub.ExpiresAt.IsZero() {
		expires = sql.NullString{String: formatTime(sub.ExpiresAt), Valid: true}
	}

	const query = `INSERT OR REPLACE INTO subscriptions (user_id, plan, status, expires_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`
	if _, err := r.db.Writer.ExecContext(ctx, query, sub.UserID, sub.Plan, sub.Status, expires); err != nil {
		return fmt.Errorf("put subscription for user %s: %w", sub.UserID, err)
	}
	return nil
}
