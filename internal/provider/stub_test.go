package provider

import (
	"context"
	"errors"

	"github.com/shineum/webmail-driver/internal/account"
	"github.com/shineum/webmail-driver/internal/email"
)

// stubProvider implements Provider without any browser scripting.
type stubProvider struct {
	name    string
	domains []string

	// releaseOnSignout makes Signout release the browser like real providers do.
	releaseOnSignout bool
	signoutErr       error

	signouts int
	sends    int
	searches int
}

func newStub(name string, domains ...string) *stubProvider {
	return &stubProvider{name: name, domains: domains, releaseOnSignout: true}
}

func (p *stubProvider) Name() string      { return p.name }
func (p *stubProvider) Domains() []string { return p.domains }

func (p *stubProvider) Signup(ctx context.Context, user *account.User, opts Options) (*Session, error) {
	return p.Signin(ctx, user, opts)
}

func (p *stubProvider) Signin(_ context.Context, user *account.User, opts Options) (*Session, error) {
	if err := ValidateUser("signin", user); err != nil {
		return nil, err
	}
	if err := ValidateOptions("signin", opts); err != nil {
		return nil, err
	}
	addr, err := AddressFor(p, user.Username)
	if err != nil {
		return nil, err
	}
	return NewSession(p, account.Identity{Username: user.Username, Email: addr}, opts.Browser)
}

func (p *stubProvider) Signout(_ context.Context, s *Session) error {
	if err := ValidateSession("signout", p.name, s); err != nil {
		return err
	}
	p.signouts++
	if !p.releaseOnSignout {
		return p.signoutErr
	}
	return errors.Join(p.signoutErr, s.Release())
}

func (p *stubProvider) SendEmail(_ context.Context, s *Session, msg *email.Email, _ SendOptions) (*email.Receipt, error) {
	if err := ValidateSession("send email", p.name, s); err != nil {
		return nil, err
	}
	if err := ValidateEmail("send email", msg); err != nil {
		return nil, err
	}
	p.sends++
	return &email.Receipt{From: s.Email(), To: msg.To, Subject: msg.Subject}, nil
}

func (p *stubProvider) GetEmails(_ context.Context, s *Session, opts SearchOptions) ([]email.Message, error) {
	if err := ValidateSession("get emails", p.name, s); err != nil {
		return nil, err
	}
	if err := ValidateSearch("get emails", opts); err != nil {
		return nil, err
	}
	p.searches++
	return []email.Message{{ID: "1", Subject: opts.Query}}, nil
}
