// Package mime implements the MessageDecoder port using go-message.
package mime

import (
	"errors"
	"fmt"
	"io"
	"strings"

	_ "github.com/emersion/go-message/charset" // Register non-UTF-8 charsets.
	"github.com/emersion/go-message/mail"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
	"github.com/ericfisherdev/tempmail/internal/domain/port/driven"
)

// errEmptyMessage is returned for blank input.
var errEmptyMessage = errors.New("empty message source")

// Compile-time interface satisfaction check.
var _ driven.MessageDecoder = (*Decoder)(nil)

// Decoder parses raw RFC 5322 messages into display fields. HTML parts are
// passed through a bluemonday UGC policy before being returned.
type Decoder struct {
	sanitizer *bluemonday.Policy
}

// NewDecoder creates a Decoder with the default sanitizing policy.
func NewDecoder() *Decoder {
	return &Decoder{sanitizer: bluemonday.UGCPolicy()}
}

// Decode extracts sender, subject, text/plain and text/html bodies, and
// attachment metadata. Attachment content is read only to measure size.
func (d *Decoder) Decode(raw string) (model.DecodedBody, error) {
	if strings.TrimSpace(raw) == "" {
		return model.DecodedBody{}, errEmptyMessage
	}

	mr, err := mail.CreateReader(strings.NewReader(raw))
	if err != nil {
		return model.DecodedBody{}, fmt.Errorf("creating mail reader: %w", err)
	}
	defer mr.Close()

	var out model.DecodedBody
	out.Subject, _ = mr.Header.Subject()
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		out.From = formatAddress(from[0])
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.DecodedBody{}, fmt.Errorf("reading message part: %w", err)
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				return model.DecodedBody{}, fmt.Errorf("reading %s part: %w", contentType, readErr)
			}

			switch {
			case strings.HasPrefix(contentType, "text/plain") && out.Text == "":
				out.Text = string(body)
			case strings.HasPrefix(contentType, "text/html") && out.HTML == "":
				out.HTML = d.sanitizer.Sanitize(string(body))
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()

			n, readErr := io.Copy(io.Discard, part.Body)
			if readErr != nil {
				return model.DecodedBody{}, fmt.Errorf("reading attachment %q: %w", filename, readErr)
			}

			out.Attachments = append(out.Attachments, model.Attachment{
				Filename: filename,
				MIMEType: contentType,
				Size:     n,
			})
		}
	}

	return out, nil
}

func formatAddress(a *mail.Address) string {
	if a.Name == "" {
		return a.Address
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Address)
}
