package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to callers of the identity subsystem.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindUnauthenticated: missing or invalid session or bearer credential.
	KindUnauthenticated
	// KindDuplicateAddress: the provider reports the name is already claimed.
	KindDuplicateAddress
	// KindCredentialUnavailable: address known but no usable token.
	KindCredentialUnavailable
	// KindTransport: network or 5xx failure. Retry is caller policy.
	KindTransport
	// KindDecodeFailure: message body could not be parsed.
	KindDecodeFailure
)

// String returns a human-readable name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindDuplicateAddress:
		return "duplicate_address"
	case KindCredentialUnavailable:
		return "credential_unavailable"
	case KindTransport:
		return "transport_failure"
	case KindDecodeFailure:
		return "decode_failure"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per kind. Use errors.Is against these.
var (
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrDuplicateAddress      = errors.New("address already exists")
	ErrCredentialUnavailable = errors.New("credential unavailable")
	ErrTransport             = errors.New("transport failure")
	ErrDecodeFailure         = errors.New("decode failure")
)

// Error is a typed failure carrying its kind and the operation that failed.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError wraps err as a typed failure of the given kind.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e's kind, so errors.Is(err, ErrTransport)
// holds for any *Error of KindTransport.
func (e *Error) Is(target error) bool {
	return target == sentinelFor(e.Kind)
}

func sentinelFor(k ErrorKind) error {
	switch k {
	case KindUnauthenticated:
		return ErrUnauthenticated
	case KindDuplicateAddress:
		return ErrDuplicateAddress
	case KindCredentialUnavailable:
		return ErrCredentialUnavailable
	case KindTransport:
		return ErrTransport
	case KindDecodeFailure:
		return ErrDecodeFailure
	default:
		return nil
	}
}

// KindOf returns the kind of the first typed error or sentinel in err's chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	for _, k := range []ErrorKind{
		KindUnauthenticated, KindDuplicateAddress, KindCredentialUnavailable,
		KindTransport, KindDecodeFailure,
	} {
		if errors.Is(err, sentinelFor(k)) {
			return k
		}
	}
	return KindUnknown
}
