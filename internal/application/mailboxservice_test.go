package application_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/tempmail/internal/application"
	"github.com/ericfisherdev/tempmail/internal/domain/model"
)

func newTestMailbox(decode func(string) (model.DecodedBody, error)) (*application.MailboxService, *mockGateway, *memCredentialStore) {
	gateway := &mockGateway{}
	creds := newMemCredentialStore()
	creds.active = model.Mailbox{Address: "a@d.com", Credential: "tokA"}
	return application.NewMailboxService(gateway, stubDecoder{decode: decode}, creds), gateway, creds
}

func TestListMessages_DecodesInOrder(t *testing.T) {
	svc, gateway, _ := newTestMailbox(func(raw string) (model.DecodedBody, error) {
		return model.DecodedBody{Subject: "subject " + raw, HTML: "<p>" + raw + "</p>", From: "Bob <bob@x.com>"}, nil
	})
	gateway.listMessages = func(cred model.Credential) ([]model.RawMessage, int, error) {
		assert.Equal(t, model.Credential("tokA"), cred)
		var raws []model.RawMessage
		for i := range 10 {
			raws = append(raws, model.RawMessage{ID: fmt.Sprint(i), Raw: fmt.Sprint("m", i)})
		}
		return raws, 42, nil
	}

	msgs, total, err := svc.ListMessages(context.Background(), 10, 0)
	require.NoError(t, err)

	assert.Equal(t, 42, total)
	require.Len(t, msgs, 10)
	for i, msg := range msgs {
		assert.Equal(t, fmt.Sprint(i), msg.ID)
		assert.Equal(t, fmt.Sprint("subject m", i), msg.Subject)
		assert.Equal(t, "Bob <bob@x.com>", msg.From)
		assert.True(t, msg.Decoded())
	}
}

func TestDecodeFallbacks(t *testing.T) {
	tests := []struct {
		name        string
		raw         model.RawMessage
		body        model.DecodedBody
		decodeErr   error
		wantSubject string
		wantHTML    string
		wantDecoded bool
	}{
		{
			name:        "html preferred",
			raw:         model.RawMessage{Raw: "raw"},
			body:        model.DecodedBody{Subject: "Hi", HTML: "<b>x</b>", Text: "x"},
			wantSubject: "Hi",
			wantHTML:    "<b>x</b>",
			wantDecoded: true,
		},
		{
			name:        "text rendered with line breaks",
			raw:         model.RawMessage{Raw: "raw"},
			body:        model.DecodedBody{Text: "line1\nline2 <x>"},
			wantSubject: "No Subject",
			wantHTML:    "line1<br>line2 &lt;x&gt;",
			wantDecoded: true,
		},
		{
			name:        "raw when no body parts",
			raw:         model.RawMessage{Subject: "From provider", Raw: "just raw"},
			wantSubject: "From provider",
			wantHTML:    "just raw",
			wantDecoded: true,
		},
		{
			name:        "decode failure keeps raw",
			raw:         model.RawMessage{Raw: "garbage\nsource"},
			decodeErr:   errors.New("malformed header"),
			wantSubject: "Error parsing email",
			wantHTML:    "garbage<br>source",
		},
		{
			name:        "decode failure keeps provider subject",
			raw:         model.RawMessage{Subject: "Known", Raw: "garbage"},
			decodeErr:   errors.New("malformed header"),
			wantSubject: "Known",
			wantHTML:    "garbage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, gateway, _ := newTestMailbox(func(string) (model.DecodedBody, error) {
				return tt.body, tt.decodeErr
			})
			gateway.listMessages = func(model.Credential) ([]model.RawMessage, int, error) {
				return []model.RawMessage{tt.raw}, 1, nil
			}

			msgs, _, err := svc.ListMessages(context.Background(), 20, 0)
			require.NoError(t, err)
			require.Len(t, msgs, 1)

			msg := msgs[0]
			assert.Equal(t, tt.wantSubject, msg.Subject)
			assert.Equal(t, tt.wantHTML, msg.HTML)
			assert.Equal(t, tt.raw.Raw, msg.Raw)
			assert.Equal(t, tt.wantDecoded, msg.Decoded())
			if !tt.wantDecoded {
				assert.ErrorIs(t, msg.DecodeErr, model.ErrDecodeFailure)
			}
		})
	}
}

func TestMailbox_NoActiveCredential(t *testing.T) {
	svc, gateway, creds := newTestMailbox(nil)
	creds.active = model.Mailbox{}
	ctx := context.Background()

	_, _, err := svc.ListMessages(ctx, 20, 0)
	assert.ErrorIs(t, err, application.ErrNoActiveMailbox)
	assert.Equal(t, model.KindCredentialUnavailable, model.KindOf(err))

	_, err = svc.Settings(ctx)
	assert.ErrorIs(t, err, application.ErrNoActiveMailbox)

	assert.ErrorIs(t, svc.DeleteMessage(ctx, "1"), application.ErrNoActiveMailbox)
	assert.Empty(t, gateway.deleted)
}

func TestMailbox_GetDeleteSettings(t *testing.T) {
	svc, gateway, _ := newTestMailbox(func(raw string) (model.DecodedBody, error) {
		return model.DecodedBody{Subject: "S", Text: raw}, nil
	})
	ctx := context.Background()

	msg, err := svc.GetMessage(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "7", msg.ID)
	assert.Equal(t, "raw 7", msg.Text)

	require.NoError(t, svc.DeleteMessage(ctx, "7"))
	assert.Equal(t, []string{"7"}, gateway.deleted)

	settings, err := svc.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, settings.SendBalance)
}
