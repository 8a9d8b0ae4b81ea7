// Package main is the entry point for the webmail-driver command line tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shineum/webmail-driver/internal/browser"
	"github.com/shineum/webmail-driver/internal/config"
	"github.com/shineum/webmail-driver/internal/credential"
	"github.com/shineum/webmail-driver/internal/metrics"
	"github.com/shineum/webmail-driver/internal/provider"
)

const usage = `usage: webmail-driver [global flags] <command> [flags]

commands:
  signup       create an account and print it as JSON
  signin       sign in and print the signed-in address
  get-emails   search the mailbox and print the matches as JSON
  send-email   compose and send a message
  providers    list the registered providers

global flags:
`

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		slog.Info("received signal, aborting", "signal", sig)
		cancel()
	}()

	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	if err := a.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		slog.Error("command failed", "error", err, "kind", provider.KindOf(err).String())
		os.Exit(1)
	}
}

// app carries the process-level dependencies of a command run.
type app struct {
	stdout io.Writer
	stderr io.Writer

	// launcher overrides the Chrome launcher.
	launcher browser.Launcher

	// registry overrides the default provider registry.
	registry *provider.Registry

	// openStore overrides how the keyring is opened.
	openStore func(dir string) (*credential.Store, error)
}

// globals holds the parsed global flags.
type globals struct {
	configPath string
	username   string
	password   string
	email      string
	provider   string
	headless   bool
	slowMo     int
	timeout    time.Duration
	remember   bool

	// set records which flags were given explicitly.
	set map[string]bool
}

func (a *app) run(ctx context.Context, args []string) error {
	g, rest, err := a.parseGlobals(args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		fmt.Fprint(a.stderr, usage)
		return errors.New("missing command")
	}

	cfg, err := loadConfig(g.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	g.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogger(cfg.Logging.Level, a.stderr)

	var reg *prometheus.Registry
	var recorder metrics.Recorder = metrics.Nop{}
	if cfg.Metrics.Textfile != "" {
		reg = prometheus.NewRegistry()
		recorder = metrics.NewCollector(reg)
	}

	cmd := &command{app: a, cfg: cfg, globals: g, metrics: recorder}
	err = cmd.dispatch(ctx, rest[0], rest[1:])

	if reg != nil {
		if werr := metrics.WriteTextfile(cfg.Metrics.Textfile, reg); werr != nil {
			slog.Warn("failed to write metrics", "error", werr)
		}
	}
	return err
}

func (a *app) parseGlobals(args []string) (*globals, []string, error) {
	g := &globals{set: make(map[string]bool)}

	fs := flag.NewFlagSet("webmail-driver", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprint(a.stderr, usage)
		fs.PrintDefaults()
	}

	fs.StringVar(&g.configPath, "config", "", "path to YAML configuration file (optional)")
	fs.StringVar(&g.username, "username", "", "account username")
	fs.StringVar(&g.username, "u", "", "shorthand for -username")
	fs.StringVar(&g.password, "password", "", "account password")
	fs.StringVar(&g.password, "p", "", "shorthand for -password")
	fs.StringVar(&g.email, "email", "", "account email address; selects the provider by domain")
	fs.StringVar(&g.email, "e", "", "shorthand for -email")
	fs.StringVar(&g.provider, "provider", "", "provider name")
	fs.StringVar(&g.provider, "P", "", "shorthand for -provider")
	fs.BoolVar(&g.headless, "headless", true, "run the browser without a window")
	fs.IntVar(&g.slowMo, "slow-mo", 0, "minimum pause between browser steps in milliseconds")
	fs.DurationVar(&g.timeout, "timeout", 0, "timeout of a single browser step")
	fs.BoolVar(&g.remember, "remember", false, "store the password in the OS keyring after a successful sign-in")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		g.set[f.Name] = true
	})
	return g, fs.Args(), nil
}

// apply lets explicitly set flags override the loaded configuration.
func (g *globals) apply(cfg *config.Config) {
	if g.set["provider"] || g.set["P"] {
		cfg.Provider = strings.ToLower(g.provider)
	}
	if g.set["headless"] {
		cfg.Browser.Headless = g.headless
	}
	if g.set["slow-mo"] {
		cfg.Browser.SlowMoMS = g.slowMo
	}
	if g.set["timeout"] {
		cfg.Browser.Timeout = g.timeout
	}
}

// identifier returns what the provider is resolved from: the email
// address when one was given, the provider name otherwise.
func (g *globals) identifier(cfg *config.Config) string {
	if g.email != "" {
		return g.email
	}
	return cfg.Provider
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level. Standard output is reserved for command results.
func setupLogger(level string, w io.Writer) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
