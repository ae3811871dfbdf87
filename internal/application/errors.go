package application

import (
	"errors"
	"fmt"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
)

// Flow-specific duplicate conditions. Both match model.ErrDuplicateAddress
// through errors.Is so callers can branch on either the kind or the flow.
var (
	// ErrAddressClaimed is returned by Switch when the lost credential cannot
	// be re-issued because the provider reports the address as taken. It is
	// terminal and must not be retried.
	ErrAddressClaimed = fmt.Errorf("address claimed, cannot switch: %w", model.ErrDuplicateAddress)

	// ErrNameTaken is returned by Create when the requested name exists.
	ErrNameTaken = fmt.Errorf("name taken: %w", model.ErrDuplicateAddress)

	// ErrNoActiveMailbox is returned by mailbox operations when the active
	// slot is empty.
	ErrNoActiveMailbox = errors.New("no active mailbox")
)
