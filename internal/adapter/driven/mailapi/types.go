package mailapi

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
)

// flexID accepts message ids encoded as either JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(data, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// toModel maps the wire form to the domain form. The raw MIME source is
// taken from "raw" when present, else from "message".
func (m mailJSON) toModel() model.RawMessage {
	raw := m.Raw
	if raw == "" {
		raw = m.Message
	}
	return model.RawMessage{
		ID:        string(m.ID),
		Source:    m.Source,
		Address:   model.Address(m.Address),
		Subject:   m.Subject,
		Raw:       raw,
		CreatedAt: parseCreatedAt(m.CreatedAt),
	}
}

// parseCreatedAt accepts the provider's timestamp layouts. Unparseable values
// yield the zero time.
func parseCreatedAt(s string) time.Time {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
