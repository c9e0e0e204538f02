package spotify

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"hum-search/apierr"
)

const (
	TokenURL = "https://accounts.spotify.com/api/token"

	// a cached token is refreshed once it has less than this left
	refreshMargin = 10 * time.Second
)

// TokenSource yields a bearer token for the catalog API.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type cachedToken struct {
	accessToken string
	expiresAt   time.Time
}

// TokenProvider obtains bearer tokens with the client-credentials grant and
// keeps the latest one in a single slot until it is about to expire.
// One instance is meant to be shared by the whole process.
type TokenProvider struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
	clock        Clock

	mu     sync.Mutex
	cached *cachedToken
	group  singleflight.Group
}

type TokenOption func(*TokenProvider)

func WithTokenURL(tokenURL string) TokenOption {
	return func(p *TokenProvider) { p.tokenURL = tokenURL }
}

func WithClock(clock Clock) TokenOption {
	return func(p *TokenProvider) { p.clock = clock }
}

func WithTokenHTTPClient(client *http.Client) TokenOption {
	return func(p *TokenProvider) { p.httpClient = client }
}

func NewTokenProvider(clientID, clientSecret string, opts ...TokenOption) *TokenProvider {
	p := &TokenProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     TokenURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		clock:        systemClock{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Token returns the cached token when it stays valid for at least ten more
// seconds, and performs one credential exchange otherwise.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	if token, ok := p.current(); ok {
		return token, nil
	}

	var missing []string
	if p.clientID == "" {
		missing = append(missing, "SPOTIFY_CLIENT_ID")
	}
	if p.clientSecret == "" {
		missing = append(missing, "SPOTIFY_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return "", apierr.Config(missing...)
	}

	// concurrent misses share one exchange, which must outlive the caller
	// that happened to start it
	v, err, _ := p.group.Do("token", func() (any, error) {
		return p.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (p *TokenProvider) current() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached == nil || !p.clock.Now().Before(p.cached.expiresAt.Add(-refreshMargin)) {
		return "", false
	}
	return p.cached.accessToken, true
}

func (p *TokenProvider) refresh(ctx context.Context) (string, error) {
	cfg := clientcredentials.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		TokenURL:     p.tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	issuedAt := p.clock.Now()
	tok, err := cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, p.httpClient))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			status := 0
			if retrieveErr.Response != nil {
				status = retrieveErr.Response.StatusCode
			}
			return "", apierr.Upstream("spotify accounts", status, string(retrieveErr.Body), nil)
		}
		return "", apierr.Upstream("spotify accounts", 0, "", err)
	}

	p.mu.Lock()
	p.cached = &cachedToken{
		accessToken: tok.AccessToken,
		expiresAt:   issuedAt.Add(lifetime(tok)),
	}
	p.mu.Unlock()

	return tok.AccessToken, nil
}

// lifetime reads expires_in from the raw response so expiry follows the
// provider's clock rather than the wall clock oauth2 uses.
func lifetime(tok *oauth2.Token) time.Duration {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return time.Duration(v * float64(time.Second))
	case string:
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(secs * float64(time.Second))
		}
	}
	if !tok.Expiry.IsZero() {
		return time.Until(tok.Expiry)
	}
	return 0
}
