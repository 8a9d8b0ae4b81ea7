// Package config provides configuration loading for the webmail driver:
// defaults, then an optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shineum/webmail-driver/internal/browser"
)

// defaultTimeout bounds a single browser step.
const defaultTimeout = 30 * time.Second

// Export targets.
const (
	TargetStdout = "stdout"
	TargetSES    = "ses"
	TargetGraph  = "graph"
)

// Config holds the complete application configuration.
type Config struct {
	Provider    string            `yaml:"provider"`
	Browser     BrowserConfig     `yaml:"browser"`
	Export      ExportConfig      `yaml:"export"`
	SES         SESConfig         `yaml:"ses"`
	Graph       GraphConfig       `yaml:"graph"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// BrowserConfig holds the settings of launched browsers.
type BrowserConfig struct {
	Headless  bool          `yaml:"headless"`
	SlowMoMS  int           `yaml:"slow_mo_ms"`
	Timeout   time.Duration `yaml:"timeout"`
	ExecPath  string        `yaml:"exec_path"`
	UserAgent string        `yaml:"user_agent"`
}

// Options converts the section into launch options.
func (b BrowserConfig) Options() browser.Options {
	return browser.Options{
		Headless:  b.Headless,
		SlowMo:    time.Duration(b.SlowMoMS) * time.Millisecond,
		Timeout:   b.Timeout,
		ExecPath:  b.ExecPath,
		UserAgent: b.UserAgent,
	}
}

// ExportConfig selects where get-emails results go besides stdout.
type ExportConfig struct {
	Target string `yaml:"target"`
	Format string `yaml:"format"`
}

// SESConfig holds AWS SES settings for digest delivery.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Sender          string `yaml:"sender"`
	Recipient       string `yaml:"recipient"`
}

// GraphConfig holds Microsoft Graph API settings for digest delivery.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Sender       string `yaml:"sender"`
	Recipient    string `yaml:"recipient"`
}

// CredentialsConfig enables the OS keyring for account passwords.
type CredentialsConfig struct {
	Keyring bool   `yaml:"keyring"`
	Dir     string `yaml:"dir"`
}

// MetricsConfig holds the Prometheus textfile path. Empty disables metrics.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()

	return cfg, nil
}

// SESConfigured returns true if SES has a region, a sender and a recipient.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != "" && c.SES.Sender != "" && c.SES.Recipient != ""
}

// GraphConfigured returns true if all Graph credentials and both mailboxes are set.
func (c *Config) GraphConfigured() bool {
	return c.Graph.TenantID != "" &&
		c.Graph.ClientID != "" &&
		c.Graph.ClientSecret != "" &&
		c.Graph.Sender != "" &&
		c.Graph.Recipient != ""
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Browser.SlowMoMS < 0 {
		errs = append(errs, fmt.Errorf("browser.slow_mo_ms must not be negative, got %d", c.Browser.SlowMoMS))
	}
	if c.Browser.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("browser.timeout must be positive, got %s", c.Browser.Timeout))
	}

	switch c.Export.Target {
	case TargetStdout:
	case TargetSES:
		if !c.SESConfigured() {
			errs = append(errs, errors.New("export target ses requires ses.region, ses.sender and ses.recipient"))
		}
	case TargetGraph:
		if !c.GraphConfigured() {
			errs = append(errs, errors.New("export target graph requires graph.tenant_id, graph.client_id, graph.client_secret, graph.sender and graph.recipient"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown export target %q", c.Export.Target))
	}

	switch c.Export.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown export format %q", c.Export.Format))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Provider = "outlook"
	c.Browser.Headless = true
	c.Browser.Timeout = defaultTimeout
	c.Export.Target = TargetStdout
	c.Export.Format = "json"
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values; values
// that fail to parse are ignored.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("MAIL_PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}

	if v := os.Getenv("BROWSER_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = b
		}
	}
	if v := os.Getenv("BROWSER_SLOW_MO_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.Browser.SlowMoMS = ms
		}
	}
	if v := os.Getenv("BROWSER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Browser.Timeout = d
		}
	}
	if v := os.Getenv("BROWSER_EXEC_PATH"); v != "" {
		c.Browser.ExecPath = v
	}
	if v := os.Getenv("BROWSER_USER_AGENT"); v != "" {
		c.Browser.UserAgent = v
	}

	if v := os.Getenv("EXPORT_TARGET"); v != "" {
		c.Export.Target = strings.ToLower(v)
	}
	if v := os.Getenv("EXPORT_FORMAT"); v != "" {
		c.Export.Format = strings.ToLower(v)
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}
	if v := os.Getenv("SES_SENDER"); v != "" {
		c.SES.Sender = v
	}
	if v := os.Getenv("SES_RECIPIENT"); v != "" {
		c.SES.Recipient = v
	}

	if v := os.Getenv("GRAPH_TENANT_ID"); v != "" {
		c.Graph.TenantID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_ID"); v != "" {
		c.Graph.ClientID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_SECRET"); v != "" {
		c.Graph.ClientSecret = v
	}
	if v := os.Getenv("GRAPH_SENDER"); v != "" {
		c.Graph.Sender = v
	}
	if v := os.Getenv("GRAPH_RECIPIENT"); v != "" {
		c.Graph.Recipient = v
	}

	if v := os.Getenv("KEYRING_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Credentials.Keyring = b
		}
	}
	if v := os.Getenv("KEYRING_DIR"); v != "" {
		c.Credentials.Dir = v
	}

	if v := os.Getenv("METRICS_TEXTFILE"); v != "" {
		c.Metrics.Textfile = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}
