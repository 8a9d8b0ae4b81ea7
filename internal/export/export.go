// Package export delivers the messages retrieved by a mailbox search to
// their destinations: the terminal, or a digest mail through AWS SES or
// Microsoft Graph.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shineum/webmail-driver/internal/email"
)

// Exporter is the interface digest destinations must implement.
type Exporter interface {
	// Export delivers d. Implementations must not modify it.
	Export(ctx context.Context, d *Digest) error

	// Name returns the exporter name for logging.
	Name() string
}

// Digest is the result of one mailbox search.
type Digest struct {
	Account     string          `json:"account"`
	Provider    string          `json:"provider"`
	Query       string          `json:"query"`
	RetrievedAt time.Time       `json:"retrievedAt"`
	Messages    []email.Message `json:"messages"`
}

// Subject returns a one-line description of the digest.
func (d *Digest) Subject() string {
	noun := "messages"
	if len(d.Messages) == 1 {
		noun = "message"
	}
	return fmt.Sprintf("%d %s matching %q in %s", len(d.Messages), noun, d.Query, d.Account)
}

// Summary renders the digest as plain text, one paragraph per message.
func (d *Digest) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nRetrieved %s from %s.\n", d.Subject(), d.RetrievedAt.UTC().Format(time.RFC1123), d.Provider)
	for i, m := range d.Messages {
		fmt.Fprintf(&b, "\n%d. %s\n   From: %s\n", i+1, m.Subject, m.From)
		if received := receivedText(m); received != "" {
			fmt.Fprintf(&b, "   Received: %s\n", received)
		}
		if m.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", m.Snippet)
		}
	}
	return b.String()
}

// Email builds the digest mail from sender to recipient, with the message
// list attached as JSON. An empty digest carries no attachment.
func (d *Digest) Email(sender, recipient string) (*email.Email, error) {
	msg := &email.Email{
		From:     sender,
		To:       []string{recipient},
		Subject:  "Mailbox digest: " + d.Subject(),
		TextBody: d.Summary(),
	}
	if len(d.Messages) == 0 {
		return msg, nil
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode digest: %w", err)
	}
	msg.Attachments = []email.Attachment{{
		Filename:    "messages.json",
		ContentType: "application/json",
		Content:     data,
	}}
	return msg, nil
}

func receivedText(m email.Message) string {
	if !m.Received.IsZero() {
		return m.Received.Format("Mon Jan 2 2006 15:04")
	}
	return m.ReceivedRaw
}

// Fanout exports to every exporter in order and joins their errors.
type Fanout []Exporter

func (f Fanout) Export(ctx context.Context, d *Digest) error {
	var errs []error
	for _, e := range f {
		if err := e.Export(ctx, d); err != nil {
			errs = append(errs, fmt.Errorf("%s export: %w", e.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Name() string {
	names := make([]string, len(f))
	for i, e := range f {
		names[i] = e.Name()
	}
	return strings.Join(names, "+")
}
