package application

import (
	"context"
	"fmt"
	"html"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
	"github.com/ericfisherdev/tempmail/internal/domain/port/driven"
)

const (
	defaultSubject = "No Subject"
	failedSubject  = "Error parsing email"

	decodeConcurrency = 4
)

// MailboxService reads and manages messages of the active mailbox. Decode
// failures never fail an operation; the message degrades to its raw fields.
type MailboxService struct {
	gateway driven.MailGateway
	decoder driven.MessageDecoder
	creds   driven.CredentialStore
}

// NewMailboxService creates a new MailboxService with all required dependencies.
func NewMailboxService(gateway driven.MailGateway, decoder driven.MessageDecoder, creds driven.CredentialStore) *MailboxService {
	return &MailboxService{
		gateway: gateway,
		decoder: decoder,
		creds:   creds,
	}
}

// ListMessages returns one page of decoded messages and the total count.
func (s *MailboxService) ListMessages(ctx context.Context, limit, offset int) ([]model.Message, int, error) {
	cred, err := s.activeCredential(ctx, "list messages")
	if err != nil {
		return nil, 0, err
	}

	raws, total, err := s.gateway.ListMessages(ctx, cred, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing messages: %w", err)
	}

	msgs := make([]model.Message, len(raws))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(decodeConcurrency)
	for i, raw := range raws {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			msgs[i] = s.decode(raw)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	return msgs, total, nil
}

// GetMessage returns one decoded message.
func (s *MailboxService) GetMessage(ctx context.Context, id string) (model.Message, error) {
	cred, err := s.activeCredential(ctx, "get message")
	if err != nil {
		return model.Message{}, err
	}

	raw, err := s.gateway.GetMessage(ctx, cred, id)
	if err != nil {
		return model.Message{}, fmt.Errorf("getting message %s: %w", id, err)
	}
	return s.decode(raw), nil
}

// DeleteMessage removes one message from the active mailbox.
func (s *MailboxService) DeleteMessage(ctx context.Context, id string) error {
	cred, err := s.activeCredential(ctx, "delete message")
	if err != nil {
		return err
	}

	if err := s.gateway.DeleteMessage(ctx, cred, id); err != nil {
		return fmt.Errorf("deleting message %s: %w", id, err)
	}
	return nil
}

// Settings returns the provider-side settings of the active mailbox.
func (s *MailboxService) Settings(ctx context.Context) (model.Settings, error) {
	cred, err := s.activeCredential(ctx, "get settings")
	if err != nil {
		return model.Settings{}, err
	}

	settings, err := s.gateway.GetSettings(ctx, cred)
	if err != nil {
		return model.Settings{}, fmt.Errorf("getting settings: %w", err)
	}
	return settings, nil
}

func (s *MailboxService) activeCredential(ctx context.Context, op string) (model.Credential, error) {
	_, cred, err := s.creds.GetActive(ctx)
	if err != nil {
		return "", fmt.Errorf("reading active credential: %w", err)
	}
	if cred.IsZero() {
		return "", model.NewError(model.KindCredentialUnavailable, op, ErrNoActiveMailbox)
	}
	return cred, nil
}

// decode turns a provider message into a display message. The HTML body
// falls back to the text body and then to the raw source.
func (s *MailboxService) decode(raw model.RawMessage) model.Message {
	msg := model.Message{
		ID:        raw.ID,
		Address:   raw.Address,
		From:      raw.Source,
		Subject:   raw.Subject,
		Raw:       raw.Raw,
		CreatedAt: raw.CreatedAt,
	}

	body, err := s.decoder.Decode(raw.Raw)
	if err != nil {
		msg.DecodeErr = model.NewError(model.KindDecodeFailure, "decode message "+raw.ID, err)
		if msg.Subject == "" {
			msg.Subject = failedSubject
		}
		msg.HTML = textToHTML(raw.Raw)
		return msg
	}

	if body.From != "" {
		msg.From = body.From
	}
	msg.Subject = firstNonEmpty(body.Subject, raw.Subject, defaultSubject)
	msg.Text = body.Text
	msg.Attachments = body.Attachments
	msg.HTML = body.HTML
	if msg.HTML == "" {
		msg.HTML = textToHTML(firstNonEmpty(body.Text, raw.Raw))
	}
	return msg
}

// textToHTML escapes s and renders its line breaks.
func textToHTML(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
