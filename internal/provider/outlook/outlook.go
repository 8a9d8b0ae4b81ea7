// Package outlook drives the Outlook.com web UI.
package outlook

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/shineum/webmail-driver/internal/account"
	"github.com/shineum/webmail-driver/internal/browser"
	"github.com/shineum/webmail-driver/internal/email"
	"github.com/shineum/webmail-driver/internal/provider"
)

// Name is the registry key of this provider.
const Name = "outlook"

// Provider implements provider.Provider for Outlook.com accounts.
// It is stateless; every call works on the browser it is given.
type Provider struct {
	now func() time.Time
}

var (
	_ provider.Provider      = (*Provider)(nil)
	_ provider.SendValidator = (*Provider)(nil)
)

// New creates an Outlook provider.
func New() *Provider {
	return &Provider{now: time.Now}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return Name
}

// Domains returns the Microsoft consumer mail domains. New addresses are
// created under outlook.com.
func (p *Provider) Domains() []string {
	return []string{"outlook.com", "hotmail.com", "live.com"}
}

// Signup creates an Outlook.com account and returns a signed-in session.
func (p *Provider) Signup(ctx context.Context, user *account.User, opts provider.Options) (*provider.Session, error) {
	const op = "signup"
	id, err := p.preflight(op, user, opts)
	if err != nil {
		return nil, err
	}

	slog.Debug("outlook signup", "user", user, "email", id.Email)
	if err := signup(ctx, opts.Browser, id.Email, user); err != nil {
		return nil, provider.AutomationError(Name, op, err)
	}
	return provider.NewSession(p, id, opts.Browser)
}

// Signin signs an existing account in and returns its session.
func (p *Provider) Signin(ctx context.Context, user *account.User, opts provider.Options) (*provider.Session, error) {
	const op = "signin"
	id, err := p.preflight(op, user, opts)
	if err != nil {
		return nil, err
	}

	slog.Debug("outlook signin", "user", user, "email", id.Email)
	if err := signin(ctx, opts.Browser, id.Email, user.Password); err != nil {
		return nil, provider.AutomationError(Name, op, err)
	}
	return provider.NewSession(p, id, opts.Browser)
}

// Signout logs the account out and releases the session's browser. The
// browser is released even when the logout page fails.
func (p *Provider) Signout(ctx context.Context, s *provider.Session) error {
	const op = "signout"
	if err := provider.ValidateSession(op, Name, s); err != nil {
		return err
	}
	b, err := s.Browser()
	if err != nil {
		return err
	}

	logoutErr := provider.AutomationError(Name, op, signout(ctx, b))
	return errors.Join(logoutErr, s.Release())
}

// SendEmail composes msg in the Outlook web editor and sends it, or leaves
// it as a draft when opts.Draft is set.
func (p *Provider) SendEmail(ctx context.Context, s *provider.Session, msg *email.Email, opts provider.SendOptions) (*email.Receipt, error) {
	const op = "send email"
	if err := provider.ValidateSession(op, Name, s); err != nil {
		return nil, err
	}
	if err := provider.ValidateEmail(op, msg); err != nil {
		return nil, err
	}
	if err := p.ValidateSend(msg, opts); err != nil {
		return nil, err
	}
	b, err := s.Browser()
	if err != nil {
		return nil, err
	}

	if err := compose(ctx, b, msg, opts.Draft); err != nil {
		return nil, provider.AutomationError(Name, op, err)
	}
	return &email.Receipt{
		From:    s.Email(),
		To:      msg.Recipients(),
		Subject: msg.Subject,
		SentAt:  p.now().UTC(),
		Draft:   opts.Draft,
	}, nil
}

// ValidateSend rejects messages the compose deeplink cannot express.
func (p *Provider) ValidateSend(msg *email.Email, _ provider.SendOptions) error {
	if len(msg.Attachments) > 0 {
		return provider.ValidationError("send email", "attachments are not supported by %s", Name)
	}
	return nil
}

// GetEmails runs opts.Query through the mailbox search box and returns the
// listed conversations, newest first.
func (p *Provider) GetEmails(ctx context.Context, s *provider.Session, opts provider.SearchOptions) ([]email.Message, error) {
	const op = "get emails"
	if err := provider.ValidateSession(op, Name, s); err != nil {
		return nil, err
	}
	if err := provider.ValidateSearch(op, opts); err != nil {
		return nil, err
	}
	b, err := s.Browser()
	if err != nil {
		return nil, err
	}

	items, err := search(ctx, b, opts.Query)
	if err != nil {
		return nil, provider.AutomationError(Name, op, err)
	}
	return toMessages(items, opts.Limit), nil
}

// preflight runs every check that must pass before the browser is touched.
func (p *Provider) preflight(op string, user *account.User, opts provider.Options) (account.Identity, error) {
	if err := provider.ValidateUser(op, user); err != nil {
		return account.Identity{}, err
	}
	if err := provider.ValidateOptions(op, opts); err != nil {
		return account.Identity{}, err
	}
	addr, err := provider.AddressFor(p, user.Username)
	if err != nil {
		return account.Identity{}, err
	}
	return account.Identity{Username: user.Username, Email: addr}, nil
}

// present reports whether sel currently matches an element.
func present(ctx context.Context, b browser.Browser, sel string) (bool, error) {
	var found bool
	expr := "document.querySelector(" + strconv.Quote(sel) + ") !== null"
	if err := b.Evaluate(ctx, expr, &found); err != nil {
		return false, err
	}
	return found, nil
}

// waitEither waits until ok or failure becomes visible and reports
// whether it was failure.
func waitEither(ctx context.Context, b browser.Browser, ok, failure string) (bool, error) {
	if err := b.WaitVisible(ctx, ok+", "+failure); err != nil {
		return false, err
	}
	return present(ctx, b, failure)
}
