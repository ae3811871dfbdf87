package application

import (
	"time"

	"github.com/ericfisherdev/tempmail/internal/domain/port/driven"
)

// SessionDeps are the adapters one client session is built from. Cloud and
// Subscriptions may be nil for an anonymous session.
type SessionDeps struct {
	Credentials   driven.CredentialStore
	Gateway       driven.MailGateway
	Decoder       driven.MessageDecoder
	Local         driven.LocalHistoryStore
	Cloud         driven.CloudHistory
	Subscriptions driven.SubscriptionChecker

	RefreshInterval time.Duration
	PageSize        int
	OnRefresh       func(Snapshot)
}

// Session holds every piece of per-user state. Nothing in this package is
// global; two sessions never share an active credential or a tier.
type Session struct {
	Tiers      *TierResolver
	Ledger     *Ledger
	Reconciler *Reconciler
	Mailbox    *MailboxService
	Refresher  *Refresher
}

// NewSession wires a Session from its adapters.
func NewSession(deps SessionDeps) *Session {
	tiers := NewTierResolver(deps.Subscriptions)
	ledger := NewLedger(deps.Local, deps.Cloud, deps.Credentials)
	mailbox := NewMailboxService(deps.Gateway, deps.Decoder, deps.Credentials)

	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return &Session{
		Tiers:      tiers,
		Ledger:     ledger,
		Reconciler: NewReconciler(tiers, ledger, deps.Credentials, deps.Gateway),
		Mailbox:    mailbox,
		Refresher:  NewRefresher(mailbox, deps.RefreshInterval, pageSize, deps.OnRefresh),
	}
}
