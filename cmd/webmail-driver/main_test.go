package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/99designs/keyring"

	"github.com/shineum/webmail-driver/internal/browser/browsertest"
	"github.com/shineum/webmail-driver/internal/credential"
	"github.com/shineum/webmail-driver/internal/email"
	"github.com/shineum/webmail-driver/internal/provider"
	"github.com/shineum/webmail-driver/internal/provider/outlook"
)

type harness struct {
	app      *app
	stdout   *bytes.Buffer
	launcher *browsertest.Launcher
	store    *credential.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, env := range []string{
		"MAIL_PROVIDER", "BROWSER_HEADLESS", "BROWSER_SLOW_MO_MS", "BROWSER_TIMEOUT",
		"EXPORT_TARGET", "EXPORT_FORMAT", "KEYRING_ENABLED", "METRICS_TEXTFILE", "LOG_LEVEL",
	} {
		t.Setenv(env, "")
	}

	h := &harness{
		stdout:   &bytes.Buffer{},
		launcher: &browsertest.Launcher{Browser: browsertest.New()},
		store:    credential.NewStore(keyring.NewArrayKeyring(nil)),
	}
	h.app = &app{
		stdout:   h.stdout,
		stderr:   &bytes.Buffer{},
		launcher: h.launcher,
		registry: provider.NewRegistry(outlook.New()),
		openStore: func(string) (*credential.Store, error) {
			return h.store, nil
		},
	}
	return h
}

func (h *harness) run(args ...string) error {
	return h.app.run(context.Background(), args)
}

func TestProvidersCommand(t *testing.T) {
	h := newHarness(t)

	if err := h.run("providers"); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	var got []providerInfo
	if err := json.Unmarshal(h.stdout.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, h.stdout)
	}
	if len(got) != 1 || got[0].Name != "outlook" || got[0].Domains[0] != "outlook.com" {
		t.Errorf("providers = %+v", got)
	}
}

func TestSigninCommand(t *testing.T) {
	h := newHarness(t)

	err := h.run("-u", "alice", "-p", "pw", "-headless=false", "-slow-mo", "50", "-timeout", "10s", "signin")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if got := strings.TrimSpace(h.stdout.String()); got != "alice@outlook.com" {
		t.Errorf("output = %q, want %q", got, "alice@outlook.com")
	}
	opts := h.launcher.LastOptions()
	if opts.Headless || opts.SlowMo != 50*time.Millisecond || opts.Timeout != 10*time.Second {
		t.Errorf("launch options = %+v", opts)
	}
	if h.launcher.Browser.CloseCount() != 1 {
		t.Errorf("CloseCount() = %d, want 1", h.launcher.Browser.CloseCount())
	}
}

func TestSigninByEmail(t *testing.T) {
	h := newHarness(t)

	if err := h.run("-e", "bob@hotmail.com", "-p", "pw", "signin"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := strings.TrimSpace(h.stdout.String()); got != "bob@hotmail.com" {
		t.Errorf("output = %q, want %q", got, "bob@hotmail.com")
	}
}

func TestSigninUnknownProvider(t *testing.T) {
	h := newHarness(t)

	err := h.run("-e", "bob@gmail.com", "-p", "pw", "signin")
	if !errors.Is(err, provider.ErrResolution) {
		t.Fatalf("error = %v, want resolution error", err)
	}
	if h.launcher.Launches() != 0 {
		t.Error("browser launched for an unresolvable provider")
	}
}

func TestSigninMissingPassword(t *testing.T) {
	h := newHarness(t)

	err := h.run("-u", "alice", "signin")
	if !errors.Is(err, provider.ErrValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
}

func TestRememberAndKeyringLookup(t *testing.T) {
	h := newHarness(t)

	if err := h.run("-u", "alice", "-p", "hunter2", "-remember", "signin"); err != nil {
		t.Fatalf("first run() error = %v", err)
	}
	if pw, err := h.store.Get("outlook", "alice"); err != nil || pw != "hunter2" {
		t.Fatalf("stored password = %q, %v", pw, err)
	}

	t.Setenv("KEYRING_ENABLED", "true")
	h.launcher.Browser = browsertest.New()
	if err := h.run("-u", "alice", "signin"); err != nil {
		t.Fatalf("second run() error = %v", err)
	}
	if got := h.launcher.Browser.Typed(`input[name="passwd"]`); got != "hunter2" {
		t.Errorf("typed password = %q, want keyring value", got)
	}
}

func TestSignupCommand(t *testing.T) {
	h := newHarness(t)

	err := h.run("-u", "carol", "-p", "s3cret", "signup", "-first-name", "Carol", "-last-name", "Jones", "-birthday", "9/20/1986")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	out := h.stdout.String()
	if strings.Contains(out, "s3cret") {
		t.Error("signup output must not contain the password")
	}
	var got signupResult
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got.Email != "carol@outlook.com" || got.FirstName != "Carol" || got.Birthday == nil || got.Birthday.Year != 1986 {
		t.Errorf("signup result = %+v", got)
	}
}

func TestSignupBadBirthday(t *testing.T) {
	h := newHarness(t)

	err := h.run("-u", "carol", "-p", "pw", "signup", "-birthday", "13/40/1990")
	if !errors.Is(err, provider.ErrValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
	if h.launcher.Launches() != 0 {
		t.Error("browser launched despite invalid birthday")
	}
}

func TestGetEmailsCommand(t *testing.T) {
	h := newHarness(t)
	h.launcher.Browser.Results["data-convid"] = []map[string]any{
		{"id": "m1", "from": "billing@example.com", "subject": "Invoice 1"},
		{"id": "m2", "from": "billing@example.com", "subject": "Invoice 2"},
	}

	if err := h.run("-u", "alice", "-p", "pw", "get-emails", "-query", "invoice", "-limit", "1"); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	var got []email.Message
	if err := json.Unmarshal(h.stdout.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, h.stdout)
	}
	if len(got) != 1 || got[0].ID != "m1" {
		t.Errorf("messages = %+v", got)
	}
	if h.launcher.Browser.CloseCount() != 1 {
		t.Errorf("CloseCount() = %d, want 1", h.launcher.Browser.CloseCount())
	}
}

func TestGetEmailsPrintsResultsWhenSignoutFails(t *testing.T) {
	h := newHarness(t)
	h.launcher.Browser.Results["data-convid"] = []map[string]any{
		{"id": "m1", "from": "billing@example.com", "subject": "Invoice 1"},
	}
	h.launcher.Browser.FailOn["https://login.live.com/logout.srf"] = errors.New("timeout")

	err := h.run("-u", "alice", "-p", "pw", "get-emails", "-query", "invoice")
	if !errors.Is(err, provider.ErrAutomation) {
		t.Fatalf("run() error = %v, want signout automation error", err)
	}

	var got []email.Message
	if err := json.Unmarshal(h.stdout.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, h.stdout)
	}
	if len(got) != 1 || got[0].ID != "m1" {
		t.Errorf("messages = %+v", got)
	}
}

func TestSendEmailPrintsReceiptWhenSignoutFails(t *testing.T) {
	h := newHarness(t)
	h.launcher.Browser.FailOn["https://login.live.com/logout.srf"] = errors.New("timeout")

	err := h.run("-u", "alice", "-p", "pw", "send-email", "-to", "bob@example.com", "-subject", "Hi", "-body", "Hello")
	if !errors.Is(err, provider.ErrAutomation) {
		t.Fatalf("run() error = %v, want signout automation error", err)
	}

	var receipt email.Receipt
	if err := json.Unmarshal(h.stdout.Bytes(), &receipt); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, h.stdout)
	}
	if receipt.Subject != "Hi" {
		t.Errorf("receipt = %+v", receipt)
	}
}

func TestSendEmailAttachmentRejectedBeforeLaunch(t *testing.T) {
	h := newHarness(t)

	path := filepath.Join(t.TempDir(), "report.eml")
	raw := "To: bob@example.com\r\n" +
		"Subject: Report\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=b1\r\n" +
		"\r\n" +
		"--b1\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"See attached\r\n" +
		"--b1\r\n" +
		"Content-Type: application/pdf\r\n" +
		"Content-Disposition: attachment; filename=report.pdf\r\n" +
		"\r\n" +
		"%PDF\r\n" +
		"--b1--\r\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	err := h.run("-u", "alice", "-p", "pw", "send-email", "-eml", path)
	if !errors.Is(err, provider.ErrValidation) {
		t.Fatalf("run() error = %v, want validation error", err)
	}
	if h.launcher.Launches() != 0 {
		t.Error("browser launched for a message that cannot be sent")
	}
}

func TestGetEmailsTextFormat(t *testing.T) {
	h := newHarness(t)
	t.Setenv("EXPORT_FORMAT", "text")

	if err := h.run("-u", "alice", "-p", "pw", "get-emails", "-query", "invoice"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(h.stdout.String(), `No messages matching "invoice"`) {
		t.Errorf("output = %q", h.stdout.String())
	}
}

func TestGetEmailsMissingQuery(t *testing.T) {
	h := newHarness(t)

	err := h.run("-u", "alice", "-p", "pw", "get-emails")
	if !errors.Is(err, provider.ErrValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
}

func TestSendEmailFromEML(t *testing.T) {
	h := newHarness(t)

	path := filepath.Join(t.TempDir(), "msg.eml")
	raw := "To: bob@example.com\r\nSubject: From file\r\n\r\nHello from a file"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if err := h.run("-u", "alice", "-p", "pw", "send-email", "-eml", path, "-cc", "carol@example.com", "-draft"); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	var receipt email.Receipt
	if err := json.Unmarshal(h.stdout.Bytes(), &receipt); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, h.stdout)
	}
	if receipt.Subject != "From file" || !receipt.Draft || len(receipt.To) != 2 {
		t.Errorf("receipt = %+v", receipt)
	}
}

func TestSendEmailFlagsOverrideEML(t *testing.T) {
	h := newHarness(t)

	path := filepath.Join(t.TempDir(), "msg.eml")
	raw := "To: bob@example.com\r\nCc: old@example.com\r\nSubject: From file\r\n\r\nBody from file"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	err := h.run("-u", "alice", "-p", "pw", "send-email", "-eml", path, "-subject", "From flag", "-cc", "new@example.com")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	var receipt email.Receipt
	if err := json.Unmarshal(h.stdout.Bytes(), &receipt); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, h.stdout)
	}
	if receipt.Subject != "From flag" {
		t.Errorf("Subject = %q, want the flag value", receipt.Subject)
	}
	if strings.Join(receipt.To, ",") != "bob@example.com,new@example.com" {
		t.Errorf("recipients = %v, want file To and flag Cc", receipt.To)
	}

	var link string
	for _, c := range h.launcher.Browser.Calls {
		if c.Method == "navigate" && strings.Contains(c.Target, "deeplink/compose") {
			link = c.Target
		}
	}
	if !strings.Contains(link, "body=Body+from+file") {
		t.Errorf("compose link %q should carry the file body", link)
	}
}

func TestSendEmailFlags(t *testing.T) {
	h := newHarness(t)

	err := h.run("-u", "alice", "-p", "pw", "send-email", "-to", "bob@example.com, dan@example.com", "-subject", "Hi", "-body", "Hello")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !h.launcher.Browser.Called("click", `button[aria-label="Send"]`) {
		t.Error("message was not sent")
	}
}

func TestMetricsTextfile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "webmail.prom")
	t.Setenv("METRICS_TEXTFILE", path)

	if err := h.run("-u", "alice", "-p", "pw", "signin"); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(data), `webmail_operations_total{op="signin",outcome="ok",provider="outlook"} 1`) {
		t.Errorf("metrics missing signin counter:\n%s", data)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no command", args: nil, want: "missing command"},
		{name: "unknown command", args: []string{"fly"}, want: `unknown command "fly"`},
		{name: "invalid slow-mo", args: []string{"-slow-mo", "-1", "providers"}, want: "slow_mo_ms"},
		{name: "missing config file", args: []string{"-config", "/nonexistent.yaml", "providers"}, want: "failed to load configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			err := h.run(tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("run(%v) error = %v, want %q", tt.args, err, tt.want)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	got := splitList(" a@b.c, ,d@e.f ,")
	if len(got) != 2 || got[0] != "a@b.c" || got[1] != "d@e.f" {
		t.Errorf("splitList() = %v", got)
	}
	if splitList("") != nil {
		t.Error("splitList(\"\") should be nil")
	}
}
