// Package stdout implements an Exporter that prints digests to standard output.
package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shineum/webmail-driver/internal/email"
	"github.com/shineum/webmail-driver/internal/export"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

const separator = "========================================\n"

// Exporter prints the message list of a digest.
type Exporter struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
	format string
}

// New creates an Exporter that writes JSON to os.Stdout.
func New() *Exporter {
	return &Exporter{writer: os.Stdout, format: FormatJSON}
}

// NewWithWriter creates an Exporter writing format to w.
// Unknown formats fall back to JSON.
func NewWithWriter(w io.Writer, format string) *Exporter {
	if format != FormatText {
		format = FormatJSON
	}
	return &Exporter{writer: w, format: format}
}

// Export prints d.Messages: as an indented JSON array, or in text format
// as one block per message.
func (e *Exporter) Export(_ context.Context, d *export.Digest) error {
	if e.format == FormatText {
		return e.writeText(d)
	}

	msgs := d.Messages
	if msgs == nil {
		msgs = []email.Message{}
	}
	enc := json.NewEncoder(e.writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(msgs); err != nil {
		return fmt.Errorf("failed to write messages: %w", err)
	}
	return nil
}

func (e *Exporter) writeText(d *export.Digest) error {
	var b strings.Builder

	if len(d.Messages) == 0 {
		b.WriteString(separator)
		b.WriteString(fmt.Sprintf("No messages matching %q\n", d.Query))
	}
	for _, m := range d.Messages {
		b.WriteString(separator)
		b.WriteString(fmt.Sprintf("From: %s\n", m.From))
		b.WriteString(fmt.Sprintf("Subject: %s\n", m.Subject))
		if !m.Received.IsZero() {
			b.WriteString(fmt.Sprintf("Received: %s\n", m.Received.Format("Mon Jan 2 2006 15:04")))
		} else if m.ReceivedRaw != "" {
			b.WriteString(fmt.Sprintf("Received: %s\n", m.ReceivedRaw))
		}
		if m.Unread {
			b.WriteString("Unread: yes\n")
		}
		if m.Snippet != "" {
			b.WriteString(m.Snippet + "\n")
		}
	}
	b.WriteString(separator)

	if _, err := fmt.Fprint(e.writer, b.String()); err != nil {
		return fmt.Errorf("failed to write messages: %w", err)
	}
	return nil
}

// Name returns the exporter name.
func (e *Exporter) Name() string {
	return "stdout"
}
