package model

// Credential is the opaque bearer token the provider mints for one address.
// The empty Credential means "absent". A re-issuance for the same address may
// return a different token; the latest known token is the valid one.
type Credential string

// IsZero reports whether the credential is absent.
func (c Credential) IsZero() bool {
	return c == ""
}

// String returns the raw token. Callers must not log it.
func (c Credential) String() string {
	return string(c)
}

// Redacted returns a log-safe form of the token.
func (c Credential) Redacted() string {
	if len(c) <= 8 {
		return "****"
	}
	return string(c[:4]) + "…" + string(c[len(c)-4:])
}

// Mailbox pairs an address with the credential minted for it.
type Mailbox struct {
	Address    Address
	Credential Credential
}
