package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
)

// DefaultRefreshInterval is the mailbox polling period when none is configured.
const DefaultRefreshInterval = 180 * time.Second

// Snapshot is the most recent view of the active mailbox's first page.
type Snapshot struct {
	Messages  []model.Message
	Total     int
	FetchedAt time.Time
}

// refreshRequest represents a manual refresh trigger.
type refreshRequest struct {
	done chan error
}

// Refresher periodically re-fetches the active mailbox. It is the only
// background goroutine of a session; manual refreshes are funneled through
// the same loop so fetches never overlap.
type Refresher struct {
	mailbox   *MailboxService
	interval  time.Duration
	pageSize  int
	refreshCh chan refreshRequest
	onUpdate  func(Snapshot)

	mu     sync.RWMutex
	latest Snapshot
}

// NewRefresher creates a Refresher. A non-positive interval uses
// DefaultRefreshInterval. onUpdate may be nil.
func NewRefresher(mailbox *MailboxService, interval time.Duration, pageSize int, onUpdate func(Snapshot)) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{
		mailbox:   mailbox,
		interval:  interval,
		pageSize:  pageSize,
		refreshCh: make(chan refreshRequest),
		onUpdate:  onUpdate,
	}
}

// Start runs an immediate refresh, then refreshes on the configured interval
// and serves manual refresh requests. Start blocks until ctx is canceled.
func (r *Refresher) Start(ctx context.Context) {
	if err := r.refresh(ctx); err != nil {
		slog.Error("initial refresh failed", "error", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("refresher stopped")
			return
		case <-ticker.C:
			if err := r.refresh(ctx); err != nil {
				slog.Error("refresh cycle failed", "error", err)
			}
		case req := <-r.refreshCh:
			req.done <- r.refresh(ctx)
		}
	}
}

// Refresh triggers an immediate refresh, bypassing the interval. It blocks
// until the refresh completes or ctx is canceled.
func (r *Refresher) Refresh(ctx context.Context) error {
	req := refreshRequest{done: make(chan error, 1)}

	select {
	case r.refreshCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Latest returns the last successful snapshot.
func (r *Refresher) Latest() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

func (r *Refresher) refresh(ctx context.Context) error {
	start := time.Now()

	msgs, total, err := r.mailbox.ListMessages(ctx, r.pageSize, 0)
	if err != nil {
		if errors.Is(err, ErrNoActiveMailbox) {
			slog.Debug("refresh skipped, no active mailbox")
			return nil
		}
		return err
	}

	snap := Snapshot{Messages: msgs, Total: total, FetchedAt: time.Now()}
	r.mu.Lock()
	r.latest = snap
	r.mu.Unlock()

	if r.onUpdate != nil {
		r.onUpdate(snap)
	}

	slog.Info("mailbox refreshed",
		"messages", len(msgs),
		"total", total,
		"duration", time.Since(start),
	)
	return nil
}
