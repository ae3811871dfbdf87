package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
	"github.com/ericfisherdev/tempmail/internal/domain/port/driven"
)

// State is the Reconciler's lifecycle position.
type State int32

const (
	StateUninitialized State = iota
	StateResolvingTier
	StateFreeInit
	StatePremiumInit
	StateReady
	StateSwitching
	StateCreating
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateResolvingTier:
		return "resolving_tier"
	case StateFreeInit:
		return "free_init"
	case StatePremiumInit:
		return "premium_init"
	case StateReady:
		return "ready"
	case StateSwitching:
		return "switching"
	case StateCreating:
		return "creating"
	default:
		return "unknown"
	}
}

// InitResult describes the identity selected by Initialize.
type InitResult struct {
	Tier    model.Tier
	Mailbox model.Mailbox
	// Created is set when FreeInit had to mint a new address.
	Created bool
	// NeedsRecovery is set when the most recent premium history entry has no
	// usable credential. Mailbox.Address names it; the active slot is empty.
	NeedsRecovery bool
	// CloudUnavailable is set when PremiumInit could not read the cloud
	// ledger. The session is still Ready with an empty active slot, and
	// Initialize returns the read error alongside the result.
	CloudUnavailable bool
}

// Reconciler keeps the active identity consistent across the credential
// store, the local ledger and the cloud ledger. Flows are serialized by a
// mutex; a second request blocks until the first finishes.
type Reconciler struct {
	tiers   *TierResolver
	ledger  *Ledger
	creds   driven.CredentialStore
	gateway driven.MailGateway
	now     func() time.Time

	mu    sync.Mutex
	state atomic.Int32
}

// NewReconciler creates a Reconciler with all required dependencies.
func NewReconciler(
	tiers *TierResolver,
	ledger *Ledger,
	creds driven.CredentialStore,
	gateway driven.MailGateway,
) *Reconciler {
	return &Reconciler{
		tiers:   tiers,
		ledger:  ledger,
		creds:   creds,
		gateway: gateway,
		now:     time.Now,
	}
}

// State returns the current lifecycle state. It does not block on a flow in
// progress.
func (r *Reconciler) State() State {
	return State(r.state.Load())
}

func (r *Reconciler) setState(s State) {
	r.state.Store(int32(s))
}

// Active returns the active mailbox, or a zero Mailbox when the slot is empty.
func (r *Reconciler) Active(ctx context.Context) (model.Mailbox, error) {
	addr, cred, err := r.creds.GetActive(ctx)
	if err != nil {
		return model.Mailbox{}, fmt.Errorf("reading active credential: %w", err)
	}
	return model.Mailbox{Address: addr, Credential: cred}, nil
}

// Initialize resolves the tier and selects the session's starting identity.
// Premium users are never given a freshly created address here. When the
// cloud ledger cannot be read the session still becomes Ready with an empty
// active slot; the result has CloudUnavailable set and err carries the cause.
func (r *Reconciler) Initialize(ctx context.Context) (InitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.setState(StateResolvingTier)
	tier := r.tiers.Resolve(ctx)

	var (
		result InitResult
		err    error
	)
	if tier.IsPremium() {
		r.setState(StatePremiumInit)
		result, err = r.premiumInit(ctx)
	} else {
		r.setState(StateFreeInit)
		result, err = r.freeInit(ctx, tier)
	}
	result.Tier = tier

	if err != nil && !result.CloudUnavailable {
		r.setState(StateUninitialized)
		return result, err
	}

	r.setState(StateReady)
	slog.Info("identity initialized",
		"tier", tier,
		"address", result.Mailbox.Address,
		"created", result.Created,
		"needs_recovery", result.NeedsRecovery,
		"cloud_unavailable", result.CloudUnavailable,
	)
	return result, err
}

func (r *Reconciler) freeInit(ctx context.Context, tier model.Tier) (InitResult, error) {
	if err := r.ledger.PruneLocal(ctx, tier.Capacity()); err != nil {
		slog.Warn("pruning local history failed", "error", err)
	}

	addrs, err := r.ledger.LoadLocal(ctx)
	if err != nil {
		slog.Warn("local history unavailable", "error", err)
	}

	if len(addrs) > 0 {
		head := addrs[0]
		if cred, ok := r.lookup(ctx, head); ok {
			if err := r.creds.SetActive(ctx, head, cred); err != nil {
				return InitResult{}, fmt.Errorf("activating %s: %w", head, err)
			}
			return InitResult{Mailbox: model.Mailbox{Address: head, Credential: cred}}, nil
		}
	}

	mb, err := r.gateway.CreateAddress(ctx, "")
	if err != nil {
		return InitResult{}, fmt.Errorf("creating address: %w", err)
	}
	if err := r.activate(ctx, mb, tier, false); err != nil {
		return InitResult{}, err
	}
	return InitResult{Mailbox: mb, Created: true}, nil
}

func (r *Reconciler) premiumInit(ctx context.Context) (InitResult, error) {
	entries, err := r.ledger.LoadCloud(ctx)
	if err != nil {
		slog.Warn("cloud history unavailable, starting without an address", "error", err)
		if clearErr := r.creds.ClearActive(ctx); clearErr != nil {
			return InitResult{}, fmt.Errorf("clearing active credential: %w", clearErr)
		}
		return InitResult{CloudUnavailable: true}, err
	}

	if err := r.ledger.MergeCloudIntoLocal(ctx, entries); err != nil {
		slog.Warn("priming credential store failed", "error", err)
	}

	if len(entries) == 0 {
		if err := r.creds.ClearActive(ctx); err != nil {
			return InitResult{}, fmt.Errorf("clearing active credential: %w", err)
		}
		return InitResult{}, nil
	}

	head := entries[0].EntryAddress()
	var (
		cred model.Credential
		ok   bool
	)
	if e, withCred := entries[0].(model.WithCredential); withCred && !credentialExpired(e.Credential, r.now()) {
		cred, ok = e.Credential, true
	} else {
		cred, ok = r.lookup(ctx, head)
	}

	if !ok {
		if err := r.creds.ClearActive(ctx); err != nil {
			return InitResult{}, fmt.Errorf("clearing active credential: %w", err)
		}
		slog.Info("most recent address needs recovery", "address", head)
		return InitResult{Mailbox: model.Mailbox{Address: head}, NeedsRecovery: true}, nil
	}

	mb := model.Mailbox{Address: head, Credential: cred}
	if err := r.activate(ctx, mb, model.TierPremium, false); err != nil {
		return InitResult{}, err
	}
	return InitResult{Mailbox: mb}, nil
}

// Switch makes target the active address. A known credential is reused with
// no gateway call. Otherwise the credential is re-issued by claiming the
// address again; if the provider reports it taken, ErrAddressClaimed is
// returned and the active identity is unchanged.
//
// If only the cloud push fails, the returned Mailbox is active and err
// reports the sync failure.
func (r *Reconciler) Switch(ctx context.Context, target model.Address) (model.Mailbox, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.setState(StateSwitching)
	defer r.setState(StateReady)

	tier := r.tiers.Resolve(ctx)

	if cred, ok := r.lookup(ctx, target); ok {
		mb := model.Mailbox{Address: target, Credential: cred}
		return mb, r.activate(ctx, mb, tier, tier.IsPremium())
	}

	name, domain, err := target.Split()
	if err != nil {
		return model.Mailbox{}, model.NewError(model.KindCredentialUnavailable, "switch", err)
	}

	mb, err := r.gateway.CreateCustomAddress(ctx, name, domain)
	if err != nil {
		if errors.Is(err, model.ErrDuplicateAddress) {
			return model.Mailbox{}, model.NewError(model.KindDuplicateAddress, "switch", ErrAddressClaimed)
		}
		return model.Mailbox{}, fmt.Errorf("switching to %s: %w", target, err)
	}

	slog.Info("credential re-issued", "address", mb.Address)
	return mb, r.activate(ctx, mb, tier, tier.IsPremium())
}

// Create claims name@domain and makes it the active address. A name the
// provider reports as existing yields ErrNameTaken.
//
// If only the cloud push fails, the returned Mailbox is active and err
// reports the sync failure.
func (r *Reconciler) Create(ctx context.Context, name, domain string) (model.Mailbox, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.setState(StateCreating)
	defer r.setState(StateReady)

	tier := r.tiers.Resolve(ctx)

	mb, err := r.gateway.CreateCustomAddress(ctx, name, domain)
	if err != nil {
		if errors.Is(err, model.ErrDuplicateAddress) {
			return model.Mailbox{}, model.NewError(model.KindDuplicateAddress, "create", ErrNameTaken)
		}
		return model.Mailbox{}, fmt.Errorf("creating %s@%s: %w", name, domain, err)
	}

	slog.Info("address created", "address", mb.Address)
	return mb, r.activate(ctx, mb, tier, tier.IsPremium())
}

// activate sets mb as active, which also upserts its mapping, then records
// the use in the ledgers.
func (r *Reconciler) activate(ctx context.Context, mb model.Mailbox, tier model.Tier, syncToCloud bool) error {
	if err := r.creds.SetActive(ctx, mb.Address, mb.Credential); err != nil {
		return fmt.Errorf("activating %s: %w", mb.Address, err)
	}
	return r.ledger.RecordUse(ctx, mb.Address, mb.Credential, tier, syncToCloud)
}

// lookup returns a usable stored credential for addr. Store errors and
// expired tokens count as a miss.
func (r *Reconciler) lookup(ctx context.Context, addr model.Address) (model.Credential, bool) {
	cred, err := r.creds.Lookup(ctx, addr)
	if err != nil {
		slog.Warn("credential lookup failed", "address", addr, "error", err)
		return "", false
	}
	if cred.IsZero() {
		return "", false
	}
	if credentialExpired(cred, r.now()) {
		slog.Info("stored credential expired", "address", addr)
		return "", false
	}
	return cred, true
}
