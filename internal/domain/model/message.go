package model

import "time"

// RawMessage is a message as returned by the provider: metadata plus the
// undecoded MIME source.
type RawMessage struct {
	ID        string
	Source    string
	Address   Address
	Subject   string
	Raw       string
	CreatedAt time.Time
}

// Attachment describes a decoded attachment without its content.
type Attachment struct {
	Filename string
	MIMEType string
	Size     int64
}

// DecodedBody is the structured result of decoding a MIME message.
type DecodedBody struct {
	From        string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// Message is a mailbox message ready for display. When decoding fails the
// raw fields are kept and DecodeErr records the failure.
type Message struct {
	ID          string
	Address     Address
	From        string
	Subject     string
	HTML        string
	Text        string
	Raw         string
	Attachments []Attachment
	CreatedAt   time.Time
	DecodeErr   error
}

// Decoded reports whether the body was successfully decoded.
func (m Message) Decoded() bool {
	return m.DecodeErr == nil
}

// Settings is the provider-side state of a mailbox.
type Settings struct {
	Address     Address
	AutoReply   bool
	SendBalance int
}
