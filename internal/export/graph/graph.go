// Package graph implements an Exporter that mails digests through the
// Microsoft Graph sendMail API with OAuth2 client credentials.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shineum/webmail-driver/internal/email"
	"github.com/shineum/webmail-driver/internal/export"
)

// maxRetries is the maximum number of retry attempts for transient failures.
const maxRetries = 3

// baseRetryDelay is the initial delay for exponential backoff.
const baseRetryDelay = 1 * time.Second

// Config holds the Azure AD application and mailbox used to send digests.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Sender       string
	Recipient    string
}

// Exporter mails each digest from Sender to Recipient.
type Exporter struct {
	sender     string
	recipient  string
	sendURL    string
	httpClient *http.Client
	tokens     *tokenSource
	retryDelay time.Duration
}

// New creates an Exporter for the given tenant and application.
func New(cfg Config) (*Exporter, error) {
	if cfg.TenantID == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("graph exporter requires a tenant id, client id and client secret")
	}
	tokenURL := fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", url.PathEscape(cfg.TenantID))
	sendURL := fmt.Sprintf("https://graph.microsoft.com/v1.0/users/%s/sendMail", url.PathEscape(cfg.Sender))
	return newWithEndpoints(cfg, sendURL, tokenURL, &http.Client{Timeout: 30 * time.Second})
}

// newWithEndpoints creates an Exporter against custom URLs, used for testing.
func newWithEndpoints(cfg Config, sendURL, tokenURL string, client *http.Client) (*Exporter, error) {
	if cfg.Sender == "" || cfg.Recipient == "" {
		return nil, errors.New("graph exporter requires a sender and a recipient")
	}
	return &Exporter{
		sender:     cfg.Sender,
		recipient:  cfg.Recipient,
		sendURL:    sendURL,
		httpClient: client,
		tokens:     newTokenSource(tokenURL, cfg.ClientID, cfg.ClientSecret, client),
		retryDelay: baseRetryDelay,
	}, nil
}

// Name returns the exporter name.
func (e *Exporter) Name() string {
	return "msgraph"
}

// Export mails d as a digest.
func (e *Exporter) Export(ctx context.Context, d *export.Digest) error {
	msg, err := d.Email(e.sender, e.recipient)
	if err != nil {
		return err
	}
	if err := e.Send(ctx, msg); err != nil {
		return err
	}
	slog.Info("digest sent via Microsoft Graph",
		"recipient", e.recipient,
		"messages", len(d.Messages),
	)
	return nil
}

// Send delivers msg, retrying transient failures with exponential backoff.
// A 401 response refreshes the token once before the request is repeated.
func (e *Exporter) Send(ctx context.Context, msg *email.Email) error {
	body, err := json.Marshal(newSendMailRequest(msg))
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	var lastErr error
	refreshed := false

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying Graph API request",
				"attempt", attempt,
				"max_retries", maxRetries,
			)
		}

		err := e.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err

		var se *sendError
		if !errors.As(err, &se) {
			return err
		}

		switch {
		case se.permanent:
			return se
		case se.statusCode == http.StatusUnauthorized && !refreshed:
			slog.Info("refreshing Graph API token after 401")
			if _, err := e.tokens.Invalidate(ctx); err != nil {
				return fmt.Errorf("token refresh failed: %w", err)
			}
			refreshed = true
		case se.statusCode == http.StatusTooManyRequests:
			delay := retryAfter(se.retryAfter, e.retryDelay, attempt)
			slog.Info("rate limited by Graph API", "retry_after", delay)
			if err := sleepWithContext(ctx, delay); err != nil {
				return fmt.Errorf("context cancelled during retry wait: %w", err)
			}
		case se.transient:
			delay := backoffDelay(e.retryDelay, attempt)
			slog.Info("transient Graph API error, retrying",
				"status", se.statusCode,
				"delay", delay,
			)
			if err := sleepWithContext(ctx, delay); err != nil {
				return fmt.Errorf("context cancelled during retry wait: %w", err)
			}
		default:
			return se
		}
	}

	return fmt.Errorf("graph API request failed after %d retries: %w", maxRetries, lastErr)
}

// post issues one sendMail request.
func (e *Exporter) post(ctx context.Context, body []byte) error {
	token, err := e.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.sendURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	token.SetAuthHeader(req)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &sendError{message: err.Error(), transient: true}
	}
	defer resp.Body.Close()

	// sendMail answers 202 Accepted.
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		return nil
	}

	raw, _ := io.ReadAll(resp.Body)
	message := string(raw)
	var er errorResponse
	if json.Unmarshal(raw, &er) == nil && er.Error.Message != "" {
		message = er.Error.Message
	}
	return classify(resp.StatusCode, message, resp.Header.Get("Retry-After"))
}

// sendError is a failed sendMail response classified for retry decisions.
type sendError struct {
	message    string
	statusCode int
	permanent  bool
	transient  bool
	retryAfter string
}

func (e *sendError) Error() string {
	if e.statusCode == 0 {
		return "graph API request failed: " + e.message
	}
	return fmt.Sprintf("graph API error (HTTP %d): %s", e.statusCode, e.message)
}

func classify(status int, message, retryAfter string) *sendError {
	err := &sendError{message: message, statusCode: status, retryAfter: retryAfter}
	switch {
	case status == http.StatusUnauthorized,
		status == http.StatusTooManyRequests,
		status >= 500:
		err.transient = true
	default:
		err.permanent = true
	}
	return err
}

// retryAfter returns the server-requested delay, or the backoff delay
// when the header is missing or not a positive number of seconds.
func retryAfter(header string, base time.Duration, attempt int) time.Duration {
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return backoffDelay(base, attempt)
}

// backoffDelay returns base doubled once per attempt.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	return base << attempt
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
