package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// tokenResponse is the body the fake token endpoint answers with.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func tokenServer(t *testing.T, status int, resp tokenResponse) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse token form: %v", err)
		}
		if r.FormValue("client_id") != "id" || r.FormValue("client_secret") != "secret" {
			t.Errorf("client credentials not sent in the form: %v", r.Form)
		}
		if status != http.StatusOK {
			http.Error(w, "denied", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestTokenSourceCachesToken(t *testing.T) {
	t.Parallel()

	srv, calls := tokenServer(t, http.StatusOK, tokenResponse{AccessToken: "abc", ExpiresIn: 3600, TokenType: "Bearer"})
	ts := newTokenSource(srv.URL, "id", "secret", srv.Client())

	for range 2 {
		tok, err := ts.Token(context.Background())
		if err != nil || tok.AccessToken != "abc" {
			t.Fatalf("Token() = %v, %v", tok, err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("token requests = %d, want 1", calls.Load())
	}
}

func TestTokenSourceRefetchesInsideExpiryMargin(t *testing.T) {
	t.Parallel()

	// A one minute lifetime is already inside the five minute margin.
	srv, calls := tokenServer(t, http.StatusOK, tokenResponse{AccessToken: "abc", ExpiresIn: 60, TokenType: "Bearer"})
	ts := newTokenSource(srv.URL, "id", "secret", srv.Client())

	for range 2 {
		if _, err := ts.Token(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("token requests = %d, want 2", calls.Load())
	}
}

func TestTokenSourceOutlivesRequestContext(t *testing.T) {
	t.Parallel()

	srv, calls := tokenServer(t, http.StatusOK, tokenResponse{AccessToken: "abc", ExpiresIn: 60, TokenType: "Bearer"})
	ts := newTokenSource(srv.URL, "id", "secret", srv.Client())

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := ts.Token(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("Token() after the first context ended: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("token requests = %d, want 2", calls.Load())
	}
}

func TestTokenSourceInvalidate(t *testing.T) {
	t.Parallel()

	srv, calls := tokenServer(t, http.StatusOK, tokenResponse{AccessToken: "abc", ExpiresIn: 3600, TokenType: "Bearer"})
	ts := newTokenSource(srv.URL, "id", "secret", srv.Client())

	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := ts.Invalidate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("token requests = %d, want 2", calls.Load())
	}
}

func TestTokenSourceErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		resp   tokenResponse
		want   string
	}{
		{name: "rejected", status: http.StatusUnauthorized, want: "401"},
		{name: "missing token", status: http.StatusOK, resp: tokenResponse{ExpiresIn: 3600}, want: "missing access_token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv, _ := tokenServer(t, tt.status, tt.resp)
			ts := newTokenSource(srv.URL, "id", "secret", srv.Client())
			_, err := ts.Token(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Token() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestTokenSourceConcurrent(t *testing.T) {
	t.Parallel()

	srv, calls := tokenServer(t, http.StatusOK, tokenResponse{AccessToken: "abc", ExpiresIn: 3600, TokenType: "Bearer"})
	ts := newTokenSource(srv.URL, "id", "secret", srv.Client())

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ts.Token(context.Background()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if calls.Load() != 1 {
		t.Errorf("token requests = %d, want 1", calls.Load())
	}
}
