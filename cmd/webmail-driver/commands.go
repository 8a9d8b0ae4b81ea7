package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shineum/webmail-driver/internal/account"
	"github.com/shineum/webmail-driver/internal/client"
	"github.com/shineum/webmail-driver/internal/config"
	"github.com/shineum/webmail-driver/internal/credential"
	"github.com/shineum/webmail-driver/internal/email"
	"github.com/shineum/webmail-driver/internal/export"
	"github.com/shineum/webmail-driver/internal/export/graph"
	"github.com/shineum/webmail-driver/internal/export/ses"
	"github.com/shineum/webmail-driver/internal/export/stdout"
	"github.com/shineum/webmail-driver/internal/metrics"
	"github.com/shineum/webmail-driver/internal/parser"
	"github.com/shineum/webmail-driver/internal/provider"
)

// command is one CLI invocation after global flags and config are settled.
type command struct {
	app     *app
	cfg     *config.Config
	globals *globals
	metrics metrics.Recorder

	store *credential.Store
}

func (c *command) dispatch(ctx context.Context, name string, args []string) error {
	switch name {
	case "signup":
		return c.signup(ctx, args)
	case "signin":
		return c.signin(ctx, args)
	case "get-emails":
		return c.getEmails(ctx, args)
	case "send-email":
		return c.sendEmail(ctx, args)
	case "providers":
		return c.providers()
	default:
		fmt.Fprint(c.app.stderr, usage)
		return fmt.Errorf("unknown command %q", name)
	}
}

func (c *command) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.app.stderr)
	return fs
}

func (c *command) client() (*client.Client, error) {
	return client.New(c.globals.identifier(c.cfg), client.Config{
		Browser:  c.cfg.Browser.Options(),
		Launcher: c.app.launcher,
		Registry: c.app.registry,
		Metrics:  c.metrics,
		Logger:   slog.Default(),
	})
}

// user builds the account from the global flags, looking the password up
// in the keyring when none was given.
func (c *command) user(providerName string) (*account.User, error) {
	u := &account.User{
		Username: c.globals.username,
		Password: c.globals.password,
	}
	if u.Username == "" {
		u.Username = c.globals.email
	}

	if u.Password == "" && u.Username != "" && c.cfg.Credentials.Keyring {
		store, err := c.credentials()
		if err != nil {
			return nil, err
		}
		pw, err := store.Get(providerName, u.Username)
		switch {
		case errors.Is(err, credential.ErrNotFound):
			slog.Debug("no stored password", "provider", providerName, "user", u)
		case err != nil:
			return nil, err
		default:
			u.Password = pw
		}
	}
	return u, nil
}

func (c *command) credentials() (*credential.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	open := c.app.openStore
	if open == nil {
		open = credential.Open
	}
	store, err := open(c.cfg.Credentials.Dir)
	if err != nil {
		return nil, err
	}
	c.store = store
	return store, nil
}

// remember stores the password after a successful sign-in when asked to.
func (c *command) remember(providerName string, u *account.User) {
	if !c.globals.remember {
		return
	}
	store, err := c.credentials()
	if err == nil {
		err = store.Set(providerName, u.Username, u.Password)
	}
	if err != nil {
		slog.Warn("failed to remember password", "provider", providerName, "user", u, "error", err)
		return
	}
	slog.Info("password stored in keyring", "provider", providerName, "user", u)
}

// signupResult is what signup prints. The password is never echoed.
type signupResult struct {
	Username  string            `json:"username"`
	Email     string            `json:"email"`
	FirstName string            `json:"firstName,omitempty"`
	LastName  string            `json:"lastName,omitempty"`
	Birthday  *account.Birthday `json:"birthday,omitempty"`
}

func (c *command) signup(ctx context.Context, args []string) error {
	fs := c.flagSet("signup")
	firstName := fs.String("first-name", "", "first name for the new account")
	lastName := fs.String("last-name", "", "last name for the new account")
	birthday := fs.String("birthday", "", "birthday as m/d/yyyy")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cl, err := c.client()
	if err != nil {
		return err
	}
	u, err := c.user(cl.Provider().Name())
	if err != nil {
		return err
	}
	u.FirstName = *firstName
	u.LastName = *lastName
	if *birthday != "" {
		bd, err := account.ParseBirthday(*birthday)
		if err != nil {
			return provider.ValidationError("signup", "%v", err)
		}
		u.Birthday = bd
	}

	s, err := cl.Signup(ctx, u)
	if err != nil {
		return err
	}
	c.remember(cl.Provider().Name(), u)

	out := signupResult{
		Username:  u.Username,
		Email:     s.Email(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Birthday:  u.Birthday,
	}
	return errors.Join(c.printJSON(out), s.Close(ctx))
}

func (c *command) signin(ctx context.Context, args []string) error {
	if err := c.flagSet("signin").Parse(args); err != nil {
		return err
	}

	cl, err := c.client()
	if err != nil {
		return err
	}
	u, err := c.user(cl.Provider().Name())
	if err != nil {
		return err
	}

	s, err := cl.Signin(ctx, u)
	if err != nil {
		return err
	}
	c.remember(cl.Provider().Name(), u)

	_, werr := fmt.Fprintln(c.app.stdout, s.Email())
	return errors.Join(werr, s.Close(ctx))
}

func (c *command) getEmails(ctx context.Context, args []string) error {
	fs := c.flagSet("get-emails")
	query := fs.String("query", "", "search query")
	limit := fs.Int("limit", 0, "maximum number of messages (0 means all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cl, err := c.client()
	if err != nil {
		return err
	}
	u, err := c.user(cl.Provider().Name())
	if err != nil {
		return err
	}

	msgs, err := cl.GetEmails(ctx, u, provider.SearchOptions{Query: *query, Limit: *limit})
	if msgs == nil {
		return err
	}
	// err now only carries a failed signout; the messages still go out.
	signoutErr := err
	c.remember(cl.Provider().Name(), u)

	addr, _ := provider.AddressFor(cl.Provider(), u.Username)
	digest := &export.Digest{
		Account:     addr,
		Provider:    cl.Provider().Name(),
		Query:       *query,
		RetrievedAt: time.Now().UTC(),
		Messages:    msgs,
	}

	exporters, err := c.exporters(ctx)
	if err != nil {
		return errors.Join(err, signoutErr)
	}
	return errors.Join(exporters.Export(ctx, digest), signoutErr)
}

func (c *command) exporters(ctx context.Context) (export.Fanout, error) {
	out := export.Fanout{stdout.NewWithWriter(c.app.stdout, c.cfg.Export.Format)}

	var (
		e   export.Exporter
		err error
	)
	switch c.cfg.Export.Target {
	case config.TargetSES:
		slog.Info("forwarding digest via AWS SES",
			"region", c.cfg.SES.Region,
			"recipient", c.cfg.SES.Recipient,
		)
		e, err = ses.New(ctx, ses.Config{
			Region:          c.cfg.SES.Region,
			AccessKeyID:     c.cfg.SES.AccessKeyID,
			SecretAccessKey: c.cfg.SES.SecretAccessKey,
			Sender:          c.cfg.SES.Sender,
			Recipient:       c.cfg.SES.Recipient,
		})
	case config.TargetGraph:
		slog.Info("forwarding digest via Microsoft Graph", "recipient", c.cfg.Graph.Recipient)
		e, err = graph.New(graph.Config{
			TenantID:     c.cfg.Graph.TenantID,
			ClientID:     c.cfg.Graph.ClientID,
			ClientSecret: c.cfg.Graph.ClientSecret,
			Sender:       c.cfg.Graph.Sender,
			Recipient:    c.cfg.Graph.Recipient,
		})
	default:
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s exporter: %w", c.cfg.Export.Target, err)
	}
	return append(out, e), nil
}

func (c *command) sendEmail(ctx context.Context, args []string) error {
	fs := c.flagSet("send-email")
	to := fs.String("to", "", "comma-separated recipients")
	cc := fs.String("cc", "", "comma-separated carbon copy recipients")
	bcc := fs.String("bcc", "", "comma-separated blind carbon copy recipients")
	subject := fs.String("subject", "", "message subject")
	body := fs.String("body", "", "plain text body")
	html := fs.String("html", "", "HTML body")
	eml := fs.String("eml", "", "read the message from an RFC 5322 file; other flags override its fields")
	draft := fs.Bool("draft", false, "save as draft instead of sending")
	if err := fs.Parse(args); err != nil {
		return err
	}

	msg := &email.Email{}
	if *eml != "" {
		parsed, err := parser.ParseFile(*eml)
		if err != nil {
			return provider.ValidationError("send email", "%v", err)
		}
		msg = parsed
	}
	if *to != "" {
		msg.To = splitList(*to)
	}
	if *cc != "" {
		msg.Cc = splitList(*cc)
	}
	if *bcc != "" {
		msg.Bcc = splitList(*bcc)
	}
	if *subject != "" {
		msg.Subject = *subject
	}
	if *body != "" {
		msg.TextBody = *body
	}
	if *html != "" {
		msg.HtmlBody = *html
	}

	cl, err := c.client()
	if err != nil {
		return err
	}
	u, err := c.user(cl.Provider().Name())
	if err != nil {
		return err
	}

	receipt, err := cl.SendEmail(ctx, u, msg, provider.SendOptions{Draft: *draft})
	if receipt == nil {
		return err
	}
	c.remember(cl.Provider().Name(), u)
	return errors.Join(c.printJSON(receipt), err)
}

// providerInfo is one line of the providers listing.
type providerInfo struct {
	Name    string   `json:"name"`
	Domains []string `json:"domains"`
}

func (c *command) providers() error {
	reg := c.app.registry
	if reg == nil {
		reg = client.DefaultRegistry()
	}

	var list []providerInfo
	for _, p := range reg.Providers() {
		list = append(list, providerInfo{Name: p.Name(), Domains: p.Domains()})
	}
	return c.printJSON(list)
}

func (c *command) printJSON(v any) error {
	enc := json.NewEncoder(c.app.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// splitList splits a comma-separated address list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
