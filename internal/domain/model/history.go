package model

// HistoryEntry is one element of a history ledger. It is a closed variant:
// either WithCredential or CredentialLess. Consumers type-switch on it so the
// credential-less (recovery) branch cannot be forgotten.
type HistoryEntry interface {
	EntryAddress() Address
	isHistoryEntry()
}

// WithCredential is a history entry that carries a usable credential.
type WithCredential struct {
	Address    Address
	Credential Credential
}

// CredentialLess is a legacy history entry with no stored credential. It can
// be displayed but using it requires the recovery path.
type CredentialLess struct {
	Address Address
}

// EntryAddress returns the entry's address.
func (e WithCredential) EntryAddress() Address { return e.Address }

// EntryAddress returns the entry's address.
func (e CredentialLess) EntryAddress() Address { return e.Address }

func (WithCredential) isHistoryEntry() {}
func (CredentialLess) isHistoryEntry() {}

// NewHistoryEntry builds the matching variant for an optional credential.
func NewHistoryEntry(addr Address, cred Credential) HistoryEntry {
	if cred.IsZero() {
		return CredentialLess{Address: addr}
	}
	return WithCredential{Address: addr, Credential: cred}
}

// EntryAddresses projects a ledger onto its addresses, preserving order.
func EntryAddresses(entries []HistoryEntry) []Address {
	out := make([]Address, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.EntryAddress())
	}
	return out
}
