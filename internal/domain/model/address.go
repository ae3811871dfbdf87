package model

import (
	"errors"
	"strings"
)

// ErrInvalidAddress is returned when an address is not of the form local@domain.
var ErrInvalidAddress = errors.New("invalid address: expected local@domain")

// Address is a disposable mailbox identifier in local@domain form.
// Addresses are immutable once issued by the provider.
type Address string

// NewAddress joins a local part and a domain.
func NewAddress(name, domain string) Address {
	return Address(name + "@" + domain)
}

// Split returns the local part and domain. Both must be non-empty.
func (a Address) Split() (name, domain string, err error) {
	name, domain, ok := strings.Cut(string(a), "@")
	if !ok || name == "" || domain == "" || strings.Contains(domain, "@") {
		return "", "", ErrInvalidAddress
	}
	return name, domain, nil
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return string(a)
}

// IsZero reports whether the address is empty.
func (a Address) IsZero() bool {
	return a == ""
}
