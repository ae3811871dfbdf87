package application_test

import (
	"context"
	"errors"
	"sync"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
)

// --- Mock implementations ---

type memCredentialStore struct {
	mu        sync.Mutex
	active    model.Mailbox
	mappings  map[model.Address]model.Credential
	lookupErr error
	lookups   int
}

func newMemCredentialStore() *memCredentialStore {
	return &memCredentialStore{mappings: make(map[model.Address]model.Credential)}
}

func (m *memCredentialStore) SetActive(_ context.Context, addr model.Address, cred model.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = model.Mailbox{Address: addr, Credential: cred}
	m.mappings[addr] = cred
	return nil
}

func (m *memCredentialStore) GetActive(_ context.Context) (model.Address, model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active.Address, m.active.Credential, nil
}

func (m *memCredentialStore) Lookup(_ context.Context, addr model.Address) (model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.lookupErr != nil {
		return "", m.lookupErr
	}
	return m.mappings[addr], nil
}

func (m *memCredentialStore) SaveMapping(_ context.Context, addr model.Address, cred model.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mappings[addr] = cred
	return nil
}

func (m *memCredentialStore) ClearActive(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = model.Mailbox{}
	return nil
}

type memLocalHistory struct {
	addrs []model.Address
	saves int
}

func (m *memLocalHistory) Load(_ context.Context) ([]model.Address, error) {
	return append([]model.Address(nil), m.addrs...), nil
}

func (m *memLocalHistory) Save(_ context.Context, addrs []model.Address) error {
	m.saves++
	m.addrs = append([]model.Address(nil), addrs...)
	return nil
}

type pushCall struct {
	Address    model.Address
	Credential model.Credential
}

type mockCloudHistory struct {
	entries  []model.HistoryEntry
	fetchErr error
	pushErr  error
	fetches  int
	pushes   []pushCall
}

func (m *mockCloudHistory) Fetch(_ context.Context) ([]model.HistoryEntry, error) {
	m.fetches++
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.entries, nil
}

func (m *mockCloudHistory) Push(_ context.Context, addr model.Address, cred model.Credential) error {
	m.pushes = append(m.pushes, pushCall{Address: addr, Credential: cred})
	return m.pushErr
}

type mockSubscriptionChecker struct {
	premium bool
	err     error
	calls   int
}

func (m *mockSubscriptionChecker) IsPremium(_ context.Context) (bool, error) {
	m.calls++
	return m.premium, m.err
}

type customCall struct {
	Name   string
	Domain string
}

type mockGateway struct {
	createAddress func(nameHint string) (model.Mailbox, error)
	createCustom  func(name, domain string) (model.Mailbox, error)
	listMessages  func(cred model.Credential) ([]model.RawMessage, int, error)

	createCalls int
	customCalls []customCall
	deleted     []string
}

// calls returns the number of address-minting calls made.
func (m *mockGateway) calls() int {
	return m.createCalls + len(m.customCalls)
}

func (m *mockGateway) CreateAddress(_ context.Context, nameHint string) (model.Mailbox, error) {
	m.createCalls++
	if m.createAddress == nil {
		return model.Mailbox{}, errors.New("unexpected CreateAddress")
	}
	return m.createAddress(nameHint)
}

func (m *mockGateway) CreateCustomAddress(_ context.Context, name, domain string) (model.Mailbox, error) {
	m.customCalls = append(m.customCalls, customCall{Name: name, Domain: domain})
	if m.createCustom == nil {
		return model.Mailbox{}, errors.New("unexpected CreateCustomAddress")
	}
	return m.createCustom(name, domain)
}

func (m *mockGateway) ListMessages(_ context.Context, cred model.Credential, _, _ int) ([]model.RawMessage, int, error) {
	if m.listMessages == nil {
		return nil, 0, nil
	}
	return m.listMessages(cred)
}

func (m *mockGateway) GetMessage(_ context.Context, _ model.Credential, id string) (model.RawMessage, error) {
	return model.RawMessage{ID: id, Raw: "raw " + id}, nil
}

func (m *mockGateway) DeleteMessage(_ context.Context, _ model.Credential, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockGateway) GetSettings(_ context.Context, _ model.Credential) (model.Settings, error) {
	return model.Settings{Address: "a@d.com", SendBalance: 3}, nil
}

type stubDecoder struct {
	decode func(raw string) (model.DecodedBody, error)
}

func (d stubDecoder) Decode(raw string) (model.DecodedBody, error) {
	return d.decode(raw)
}

func duplicateErr() error {
	return model.NewError(model.KindDuplicateAddress, "create address", model.ErrDuplicateAddress)
}
