package graph

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// expiryMargin is subtracted from the token lifetime so a token never
// expires in the middle of a request.
const expiryMargin = 5 * time.Minute

// graphScope is the client-credentials scope for Microsoft Graph.
const graphScope = "https://graph.microsoft.com/.default"

// tokenSource hands out app-only access tokens, cached until shortly before
// they expire. It is safe for concurrent use.
type tokenSource struct {
	cfg        clientcredentials.Config
	httpClient *http.Client

	mu  sync.Mutex
	src oauth2.TokenSource
}

func newTokenSource(endpoint, clientID, clientSecret string, httpClient *http.Client) *tokenSource {
	return &tokenSource{
		cfg: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     endpoint,
			Scopes:       []string{graphScope},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
	}
}

// Token returns a valid token, fetching a new one when the cached one is
// missing or about to expire.
func (ts *tokenSource) Token(ctx context.Context) (*oauth2.Token, error) {
	ts.mu.Lock()
	if ts.src == nil {
		ts.src = oauth2.ReuseTokenSourceWithExpiry(nil, ts.fetcher(ctx), expiryMargin)
	}
	src := ts.src
	ts.mu.Unlock()

	return src.Token()
}

// Invalidate drops the cached token and fetches a replacement. It is
// called after Graph rejects a token with 401.
func (ts *tokenSource) Invalidate(ctx context.Context) (*oauth2.Token, error) {
	ts.mu.Lock()
	ts.src = nil
	ts.mu.Unlock()

	return ts.Token(ctx)
}

// fetcher requests a fresh token on every call; caching is left to the
// ReuseTokenSource wrapping it. Later refreshes outlive the request that
// created the source, so only ctx's values are kept.
func (ts *tokenSource) fetcher(ctx context.Context) oauth2.TokenSource {
	ctx = context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, ts.httpClient)
	return fetchFunc(func() (*oauth2.Token, error) {
		return ts.cfg.Token(ctx)
	})
}

type fetchFunc func() (*oauth2.Token, error)

func (f fetchFunc) Token() (*oauth2.Token, error) { return f() }
