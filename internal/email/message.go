// Package email defines the mail data model shared by providers, the parser and exporters.
package email

import "time"

// Email is an outgoing message handed to a provider's send capability.
type Email struct {
	From        string
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	TextBody    string
	HtmlBody    string
	Attachments []Attachment
	RawHeaders  map[string][]string
	MessageID   string
}

// Body returns the plain text body, deriving it from the HTML body when
// no text part is present.
func (e *Email) Body() string {
	if e.TextBody != "" {
		return e.TextBody
	}
	return PlainText(e.HtmlBody)
}

// Recipients returns every envelope recipient: To, then Cc, then Bcc.
func (e *Email) Recipients() []string {
	out := make([]string, 0, len(e.To)+len(e.Cc)+len(e.Bcc))
	out = append(out, e.To...)
	out = append(out, e.Cc...)
	return append(out, e.Bcc...)
}

// Attachment represents a file attached to an email message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is one entry of a mailbox listing returned by a provider search.
// Field names are the same for every provider.
type Message struct {
	ID          string    `json:"id"`
	From        string    `json:"from"`
	Subject     string    `json:"subject"`
	Snippet     string    `json:"snippet"`
	Received    time.Time `json:"received"`
	ReceivedRaw string    `json:"receivedRaw,omitempty"`
	Unread      bool      `json:"unread"`
}

// Receipt describes a message a provider composed through its UI.
type Receipt struct {
	From    string    `json:"from"`
	To      []string  `json:"to"`
	Subject string    `json:"subject"`
	SentAt  time.Time `json:"sentAt"`
	Draft   bool      `json:"draft"`
}
