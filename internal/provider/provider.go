// Package provider defines the capability contract every webmail backend
// implements, the Session that owns a signed-in browser, and the registry
// that resolves a backend by name or email address.
package provider

import (
	"context"
	"strings"

	"github.com/shineum/webmail-driver/internal/account"
	"github.com/shineum/webmail-driver/internal/browser"
	"github.com/shineum/webmail-driver/internal/email"
)

// Provider is the interface webmail backends must implement. Each provider
// drives one service's web UI through the browser it is handed; it holds no
// long-lived resources of its own.
type Provider interface {
	// Name returns the registry key of this provider, e.g. "outlook".
	Name() string

	// Domains lists the mail domains served by this provider. The first
	// entry is used to derive addresses for new sessions.
	Domains() []string

	// Signup creates an account and returns a Session that owns opts.Browser.
	Signup(ctx context.Context, user *account.User, opts Options) (*Session, error)

	// Signin signs an existing account in and returns a Session that owns
	// opts.Browser.
	Signin(ctx context.Context, user *account.User, opts Options) (*Session, error)

	// Signout signs the session out and releases its browser.
	Signout(ctx context.Context, s *Session) error

	// SendEmail composes and submits msg through the provider's UI.
	SendEmail(ctx context.Context, s *Session, msg *email.Email, opts SendOptions) (*email.Receipt, error)

	// GetEmails searches the mailbox and returns the matching messages in
	// the order the provider lists them.
	GetEmails(ctx context.Context, s *Session, opts SearchOptions) ([]email.Message, error)
}

// SendValidator is implemented by providers whose compose form cannot carry
// every message. ValidateSend runs before any browser is launched.
type SendValidator interface {
	ValidateSend(msg *email.Email, opts SendOptions) error
}

// Options carries the browser a signup or signin runs in. Ownership of
// Browser moves into the returned Session on success.
type Options struct {
	Browser browser.Browser
}

// SendOptions tunes SendEmail.
type SendOptions struct {
	// Draft composes the message without submitting it.
	Draft bool
}

// SearchOptions tunes GetEmails.
type SearchOptions struct {
	// Query is passed to the provider's search box verbatim.
	Query string

	// Limit caps the number of returned messages. Zero means no cap.
	Limit int
}

// AddressFor derives the lowercased mailbox address of username at p. A
// username that already carries one of p's domains keeps it; a bare username
// gets the primary domain.
func AddressFor(p Provider, username string) (string, error) {
	const op = "derive address"

	domains := p.Domains()
	if len(domains) == 0 {
		return "", validationError(op, "provider %q serves no domains", p.Name())
	}

	local, domain, found := strings.Cut(strings.ToLower(strings.TrimSpace(username)), "@")
	if local == "" {
		return "", validationError(op, `missing required "username"`)
	}
	if !found {
		return local + "@" + strings.ToLower(domains[0]), nil
	}
	if servesDomain(p, domain) {
		return local + "@" + domain, nil
	}
	return "", validationError(op, "username %q is not a %s address", username, p.Name())
}

func servesDomain(p Provider, domain string) bool {
	for _, d := range p.Domains() {
		if strings.EqualFold(d, domain) {
			return true
		}
	}
	return false
}
