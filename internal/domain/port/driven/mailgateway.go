package driven

import (
	"context"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
)

// MailGateway defines the driven port for the remote disposable-mail provider.
// Every method is a network call and may fail. Failures are *model.Error
// values of KindUnauthenticated, KindDuplicateAddress or KindTransport.
type MailGateway interface {
	// CreateAddress mints a new address. An empty nameHint makes the
	// adapter generate a random name. Unauthenticated.
	CreateAddress(ctx context.Context, nameHint string) (model.Mailbox, error)

	// CreateCustomAddress claims name@domain. Returns a KindDuplicateAddress
	// error when the provider reports the name as taken. Unauthenticated.
	CreateCustomAddress(ctx context.Context, name, domain string) (model.Mailbox, error)

	ListMessages(ctx context.Context, cred model.Credential, limit, offset int) ([]model.RawMessage, int, error)
	GetMessage(ctx context.Context, cred model.Credential, id string) (model.RawMessage, error)
	DeleteMessage(ctx context.Context, cred model.Credential, id string) error
	GetSettings(ctx context.Context, cred model.Credential) (model.Settings, error)
}

// MessageDecoder turns raw MIME source into structured fields. It is a pure
// function of its input.
type MessageDecoder interface {
	Decode(raw string) (model.DecodedBody, error)
}
