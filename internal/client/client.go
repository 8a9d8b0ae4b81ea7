// Package client is the entry point for driving a webmail account: it
// resolves the provider, launches the browser and hands out sessions.
package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shineum/webmail-driver/internal/account"
	"github.com/shineum/webmail-driver/internal/browser"
	"github.com/shineum/webmail-driver/internal/email"
	"github.com/shineum/webmail-driver/internal/metrics"
	"github.com/shineum/webmail-driver/internal/provider"
	"github.com/shineum/webmail-driver/internal/provider/outlook"
)

// DefaultRegistry returns the process-wide registry of built-in providers.
var DefaultRegistry = sync.OnceValue(func() *provider.Registry {
	return provider.NewRegistry(outlook.New())
})

// Config holds the dependencies of a Client. Zero fields get defaults.
type Config struct {
	// Browser is passed to every launch.
	Browser browser.Options

	// Launcher starts browsers. Defaults to a local Chrome.
	Launcher browser.Launcher

	// Registry resolves the identifier. Defaults to DefaultRegistry().
	Registry *provider.Registry

	// Metrics receives one record per operation.
	Metrics metrics.Recorder

	Logger *slog.Logger
}

// Client runs account operations against one provider.
type Client struct {
	provider provider.Provider
	browser  browser.Options
	launcher browser.Launcher
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// New resolves identifier, a provider name or an email address, and
// returns a Client bound to that provider.
func New(identifier string, cfg Config) (*Client, error) {
	if cfg.Registry == nil {
		cfg.Registry = DefaultRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Launcher == nil {
		cfg.Launcher = &browser.ChromeLauncher{Logger: cfg.Logger}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}

	p, err := cfg.Registry.Resolve(identifier)
	if err != nil {
		return nil, err
	}

	return &Client{
		provider: p,
		browser:  cfg.Browser,
		launcher: cfg.Launcher,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.With("provider", p.Name()),
	}, nil
}

// Provider returns the resolved provider.
func (c *Client) Provider() provider.Provider {
	return c.provider
}

// Signup creates an account in a fresh browser. The returned session owns
// that browser; close it when done.
func (c *Client) Signup(ctx context.Context, user *account.User) (*provider.Session, error) {
	return c.open(ctx, "signup", user, c.provider.Signup)
}

// Signin signs an existing account in within a fresh browser. The returned
// session owns that browser; close it when done.
func (c *Client) Signin(ctx context.Context, user *account.User) (*provider.Session, error) {
	return c.open(ctx, "signin", user, c.provider.Signin)
}

// GetEmails signs user in, searches the mailbox and signs out again. When
// only the signout fails, msgs is still returned (non-nil) alongside err.
func (c *Client) GetEmails(ctx context.Context, user *account.User, opts provider.SearchOptions) (msgs []email.Message, err error) {
	const op = "get emails"
	if err := provider.ValidateSearch(op, opts); err != nil {
		return nil, err
	}

	s, err := c.Signin(ctx, user)
	if err != nil {
		return nil, err
	}
	defer c.closeSession(ctx, s, &err)

	defer c.record(op, time.Now(), &err)
	msgs, err = s.GetEmails(ctx, opts)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []email.Message{}
	}
	c.logger.Debug("emails retrieved", "session", s.ID(), "count", len(msgs))
	return msgs, nil
}

// SendEmail signs user in, sends msg and signs out again. When only the
// signout fails, the receipt is still returned alongside err.
func (c *Client) SendEmail(ctx context.Context, user *account.User, msg *email.Email, opts provider.SendOptions) (receipt *email.Receipt, err error) {
	const op = "send email"
	if err := provider.ValidateEmail(op, msg); err != nil {
		return nil, err
	}
	if v, ok := c.provider.(provider.SendValidator); ok {
		if err := v.ValidateSend(msg, opts); err != nil {
			return nil, err
		}
	}

	s, err := c.Signin(ctx, user)
	if err != nil {
		return nil, err
	}
	defer c.closeSession(ctx, s, &err)

	defer c.record(op, time.Now(), &err)
	receipt, err = s.SendEmail(ctx, msg, opts)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("email sent", "session", s.ID(), "draft", receipt.Draft)
	return receipt, nil
}

type openFunc func(context.Context, *account.User, provider.Options) (*provider.Session, error)

func (c *Client) open(ctx context.Context, op string, user *account.User, fn openFunc) (s *provider.Session, err error) {
	defer c.record(op, time.Now(), &err)

	if err := provider.ValidateUser(op, user); err != nil {
		return nil, err
	}
	if _, err := provider.AddressFor(c.provider, user.Username); err != nil {
		return nil, err
	}

	c.logger.Debug("launching browser", "op", op, "user", user, "headless", c.browser.Headless)
	b, err := c.launcher.Launch(ctx, c.browser)
	if err != nil {
		return nil, provider.AutomationError(c.provider.Name(), op, err)
	}

	s, err = fn(ctx, user, provider.Options{Browser: b})
	if err != nil {
		// Ownership never moved to a session.
		if cerr := b.Close(); cerr != nil {
			c.logger.Debug("closing browser after failed "+op, "error", cerr)
		}
		return nil, err
	}

	c.logger.Debug("session opened", "op", op, "session", s.ID(), "email", s.Email())
	return s, nil
}

// closeSession closes s and folds a close failure into *errp.
func (c *Client) closeSession(ctx context.Context, s *provider.Session, errp *error) {
	start := time.Now()
	err := s.Close(ctx)
	c.metrics.RecordOperation(c.provider.Name(), "signout", time.Since(start), err)
	c.logger.Debug("session closed", "session", s.ID(), "error", err)
	if err != nil {
		*errp = errors.Join(*errp, err)
	}
}

func (c *Client) record(op string, start time.Time, errp *error) {
	c.metrics.RecordOperation(c.provider.Name(), op, time.Since(start), *errp)
}
