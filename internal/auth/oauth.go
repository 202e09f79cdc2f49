package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

const (
	authURL  = "https://www.strava.com/oauth/authorize"
	tokenURL = "https://www.strava.com/oauth/token"

	// refreshBuffer is how long before expiry a token counts as stale.
	refreshBuffer = 60 * time.Second
)

// Credentials holds the Strava API application credentials.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// NewOAuthConfig builds the oauth2.Config for the Strava API.
// Strava expects its comma-separated scope list as a single scope entry.
func NewOAuthConfig(creds Credentials, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
		RedirectURL: redirectURL,
		Scopes:      []string{"read,activity:read_all"},
	}
}

// AthleteID pulls the athlete ID out of a token response. Strava embeds the
// athlete object in the token exchange payload.
func AthleteID(token *oauth2.Token) int64 {
	athlete, ok := token.Extra("athlete").(map[string]interface{})
	if !ok {
		return 0
	}
	id, ok := athlete["id"].(float64)
	if !ok {
		return 0
	}
	return int64(id)
}

// PersistFunc is called with every freshly refreshed token so it can be
// written back to storage.
type PersistFunc func(*oauth2.Token) error

// TokenSource is an oauth2.TokenSource that refreshes through the config and
// persists new tokens. Safe for concurrent use.
type TokenSource struct {
	mu      sync.Mutex
	config  *oauth2.Config
	token   *oauth2.Token
	persist PersistFunc
}

// NewTokenSource wraps a stored token with refresh-and-persist behavior.
func NewTokenSource(cfg *oauth2.Config, token *oauth2.Token, persist PersistFunc) *TokenSource {
	return &TokenSource{config: cfg, token: token, persist: persist}
}

// Token returns a valid token, refreshing and persisting if the stored one
// is within the refresh buffer of expiry.
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if time.Until(ts.token.Expiry) > refreshBuffer {
		return ts.token, nil
	}

	fresh, err := ts.config.TokenSource(context.Background(), ts.token).Token()
	if err != nil {
		return nil, err
	}
	if ts.persist != nil {
		if err := ts.persist(fresh); err != nil {
			return nil, err
		}
	}
	ts.token = fresh
	return fresh, nil
}
