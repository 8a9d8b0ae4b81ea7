// Package parser reads RFC 5322 messages (.eml files) into the email model
// used by the send-email command.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/textproto"
	"os"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/shineum/webmail-driver/internal/email"
)

// ParseFile reads and parses the message stored at path.
func ParseFile(path string) (*email.Email, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read message file: %w", err)
	}
	return Parse(raw)
}

// Parse parses a raw RFC 5322 message. It handles plain text messages,
// nested multipart bodies and attachments. Unrecognized MIME parts are
// logged as warnings and skipped.
func Parse(raw []byte) (*email.Email, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	defer mr.Close()

	h := mr.Header
	result := &email.Email{
		RawHeaders: make(map[string][]string),
	}
	for f := h.Fields(); f.Next(); {
		key := textproto.CanonicalMIMEHeaderKey(f.Key())
		result.RawHeaders[key] = append(result.RawHeaders[key], f.Value())
	}

	result.From = text(h, "From")
	result.Subject = text(h, "Subject")
	result.MessageID = h.Get("Message-Id")
	result.To = parseAddressList(h, "To")
	result.Cc = parseAddressList(h, "Cc")
	result.Bcc = parseAddressList(h, "Bcc")

	multipart := false
	if h.Get("Content-Type") != "" {
		mediaType, params, err := h.ContentType()
		if err != nil {
			slog.Warn("failed to parse content type, treating as plain text",
				"content_type", h.Get("Content-Type"),
				"error", err,
			)
		}
		if strings.HasPrefix(mediaType, "multipart/") {
			if params["boundary"] == "" {
				return nil, errors.New("multipart message missing boundary")
			}
			multipart = true
		}
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return nil, fmt.Errorf("failed to read next part: %w", err)
		}
		if part == nil {
			continue
		}
		if err := addPart(result, part, multipart); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// addPart stores one leaf part as a body or an attachment.
func addPart(result *email.Email, part *mail.Part, multipart bool) error {
	content, err := io.ReadAll(part.Body)
	if err != nil {
		return fmt.Errorf("failed to read part content: %w", err)
	}

	switch h := part.Header.(type) {
	case *mail.AttachmentHeader:
		mediaType, params, _ := h.ContentType()
		filename, _ := h.Filename()
		result.Attachments = append(result.Attachments, email.Attachment{
			Filename:    attachmentName(filename, mediaType, params),
			ContentType: mediaType,
			Content:     content,
		})

	case *mail.InlineHeader:
		mediaType, params, err := h.ContentType()
		if err != nil || mediaType == "" {
			mediaType = "text/plain"
		}

		switch {
		case mediaType == "text/plain":
			if result.TextBody == "" {
				result.TextBody = string(content)
			}
		case mediaType == "text/html":
			if result.HtmlBody == "" {
				result.HtmlBody = string(content)
			}
		case params["name"] != "":
			result.Attachments = append(result.Attachments, email.Attachment{
				Filename:    params["name"],
				ContentType: mediaType,
				Content:     content,
			})
		case !multipart:
			slog.Warn("unrecognized top-level content type", "content_type", mediaType)
			result.TextBody = string(content)
		default:
			slog.Warn("unrecognized MIME part, skipping",
				"content_type", mediaType,
				"disposition", h.Get("Content-Disposition"),
			)
		}
	}
	return nil
}

// attachmentName returns the best available file name for an attachment,
// deriving one from the media type when the message names none.
func attachmentName(filename, mediaType string, params map[string]string) string {
	if filename != "" {
		return filename
	}
	if name := params["name"]; name != "" {
		return name
	}
	if _, sub, ok := strings.Cut(mediaType, "/"); ok && sub != "" {
		return "attachment." + sub
	}
	return "attachment"
}

// text returns the decoded value of a header field, falling back to the
// raw value when it holds malformed encoded words.
func text(h mail.Header, key string) string {
	v, err := h.Text(key)
	if err != nil {
		return h.Get(key)
	}
	return v
}

// parseAddressList returns the bare addresses of a header field, or nil
// when the field is absent.
func parseAddressList(h mail.Header, key string) []string {
	raw := h.Get(key)
	if raw == "" {
		return nil
	}

	addresses, err := h.AddressList(key)
	if err != nil {
		// Fall back to a simple comma split if RFC 5322 parsing fails
		parts := strings.Split(raw, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		result = append(result, addr.Address)
	}
	return result
}
