package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
	"github.com/ericfisherdev/tempmail/internal/domain/port/driven"
)

// Ledger maintains the two history ledgers. The local ledger is an ordered,
// duplicate-free list of addresses bounded by the tier capacity. The cloud
// ledger is written only for premium users and is read as the premium
// source of truth. The two are never merged into one list.
type Ledger struct {
	local driven.LocalHistoryStore
	cloud driven.CloudHistory
	creds driven.CredentialStore
}

// NewLedger creates a Ledger. cloud may be nil for sessions that never sync.
func NewLedger(local driven.LocalHistoryStore, cloud driven.CloudHistory, creds driven.CredentialStore) *Ledger {
	return &Ledger{
		local: local,
		cloud: cloud,
		creds: creds,
	}
}

// RecordUse moves addr to the front of the local ledger, truncates it to the
// tier capacity, and persists it. When syncToCloud is set and the tier is
// premium the entry is also pushed to the cloud ledger.
//
// A cloud push failure is returned only after the local write has succeeded;
// the local ledger is never rolled back.
func (l *Ledger) RecordUse(ctx context.Context, addr model.Address, cred model.Credential, tier model.Tier, syncToCloud bool) error {
	addrs, err := l.local.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading local history: %w", err)
	}

	if err := l.local.Save(ctx, moveToFront(addrs, addr, tier.Capacity())); err != nil {
		return fmt.Errorf("saving local history: %w", err)
	}

	if !syncToCloud || !tier.IsPremium() || l.cloud == nil {
		return nil
	}

	if err := l.cloud.Push(ctx, addr, cred); err != nil {
		slog.Warn("cloud history push failed", "address", addr, "error", err)
		return fmt.Errorf("pushing cloud history: %w", err)
	}
	return nil
}

// LoadLocal returns the local ledger, most-recent-first.
func (l *Ledger) LoadLocal(ctx context.Context) ([]model.Address, error) {
	addrs, err := l.local.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading local history: %w", err)
	}
	return addrs, nil
}

// LoadCloud returns the cloud ledger, most-recent-first. It is empty when
// there is no session or no records.
func (l *Ledger) LoadCloud(ctx context.Context) ([]model.HistoryEntry, error) {
	if l.cloud == nil {
		return nil, nil
	}

	entries, err := l.cloud.Fetch(ctx)
	if err != nil {
		if errors.Is(err, model.ErrUnauthenticated) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading cloud history: %w", err)
	}
	return dedupEntries(entries), nil
}

// MergeCloudIntoLocal primes the credential store with every cloud entry that
// carries a credential. It touches neither the active slot nor the local
// ledger.
func (l *Ledger) MergeCloudIntoLocal(ctx context.Context, entries []model.HistoryEntry) error {
	for _, entry := range entries {
		e, ok := entry.(model.WithCredential)
		if !ok {
			continue
		}
		if err := l.creds.SaveMapping(ctx, e.Address, e.Credential); err != nil {
			return fmt.Errorf("saving mapping for %s: %w", e.Address, err)
		}
	}
	return nil
}

// PruneLocal truncates a local ledger written under a larger capacity, such
// as one left behind by an expired subscription.
func (l *Ledger) PruneLocal(ctx context.Context, capacity int) error {
	addrs, err := l.local.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading local history: %w", err)
	}
	if len(addrs) <= capacity {
		return nil
	}

	slog.Info("pruning local history", "from", len(addrs), "to", capacity)
	if err := l.local.Save(ctx, addrs[:capacity]); err != nil {
		return fmt.Errorf("saving local history: %w", err)
	}
	return nil
}

// moveToFront returns addrs with addr first, any prior occurrence removed,
// and the tail dropped beyond capacity.
func moveToFront(addrs []model.Address, addr model.Address, capacity int) []model.Address {
	out := make([]model.Address, 0, len(addrs)+1)
	out = append(out, addr)
	for _, a := range addrs {
		if a != addr {
			out = append(out, a)
		}
	}
	if len(out) > capacity {
		out = out[:capacity]
	}
	return out
}

// dedupEntries keeps the first occurrence of each address.
func dedupEntries(entries []model.HistoryEntry) []model.HistoryEntry {
	seen := make(map[model.Address]bool, len(entries))
	out := make([]model.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		addr := e.EntryAddress()
		if seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, e)
	}
	return out
}
