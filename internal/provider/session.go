package provider

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/shineum/webmail-driver/internal/account"
	"github.com/shineum/webmail-driver/internal/browser"
	"github.com/shineum/webmail-driver/internal/email"
)

// Session binds a signed-in identity to the browser it is signed in with and
// to the provider that created it. The session exclusively owns the browser
// until Close (or the provider's Signout) releases it.
//
// Operations on one Session must be serialized by the caller.
type Session struct {
	id       string
	identity account.Identity
	provider Provider

	mu      sync.Mutex
	browser browser.Browser
	closed  bool
}

// NewSession takes ownership of b on behalf of p.
func NewSession(p Provider, identity account.Identity, b browser.Browser) (*Session, error) {
	const op = "new session"
	if p == nil {
		return nil, validationError(op, "missing provider")
	}
	if b == nil {
		return nil, validationError(op, `missing required "browser"`)
	}
	if identity.Email == "" {
		return nil, validationError(op, "missing session email")
	}
	return &Session{
		id:       uuid.NewString(),
		identity: identity,
		provider: p,
		browser:  b,
	}, nil
}

// ID returns a random identifier for correlating logs and metrics.
func (s *Session) ID() string { return s.id }

// Email returns the address the session is signed in as.
func (s *Session) Email() string { return s.identity.Email }

// Identity returns the signed-in account.
func (s *Session) Identity() account.Identity { return s.identity }

// Provider returns the provider that created the session.
func (s *Session) Provider() Provider { return s.provider }

// Closed reports whether the browser has been released.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Browser returns the owned browser, or a lifecycle error once released.
func (s *Session) Browser() (browser.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, lifecycleError("browser")
	}
	return s.browser, nil
}

// Release closes the owned browser. It is meant for provider Signout
// implementations; a second call returns a lifecycle error.
func (s *Session) Release() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return lifecycleError("release")
	}
	b := s.browser
	s.browser = nil
	s.closed = true
	s.mu.Unlock()

	if err := b.Close(); err != nil {
		return AutomationError(s.provider.Name(), "release", err)
	}
	return nil
}

// SendEmail forwards to the owning provider.
func (s *Session) SendEmail(ctx context.Context, msg *email.Email, opts SendOptions) (*email.Receipt, error) {
	if s.Closed() {
		return nil, lifecycleError("send email")
	}
	return s.provider.SendEmail(ctx, s, msg, opts)
}

// GetEmails forwards to the owning provider.
func (s *Session) GetEmails(ctx context.Context, opts SearchOptions) ([]email.Message, error) {
	if s.Closed() {
		return nil, lifecycleError("get emails")
	}
	return s.provider.GetEmails(ctx, s, opts)
}

// Close signs the session out through its provider and makes sure the
// browser is released even if the provider did not. Closing twice fails.
func (s *Session) Close(ctx context.Context) error {
	if s.Closed() {
		return lifecycleError("close")
	}

	err := s.provider.Signout(ctx, s)
	if relErr := s.Release(); relErr != nil && !errors.Is(relErr, ErrSessionClosed) {
		err = errors.Join(err, relErr)
	}
	return err
}
