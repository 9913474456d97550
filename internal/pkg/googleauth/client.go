package googleauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/hverma/enrollhub/internal/pkg/apperrors"
)

const defaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// Tokens holds the provider-issued token set from a code exchange.
type Tokens struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
}

// Config configures the provider client.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Timeout      time.Duration

	// Overridable for tests; zero values select Google's endpoints.
	Endpoint     oauth2.Endpoint
	TokenInfoURL string
}

// Client speaks the authorization-code-exchange and token-introspection
// protocol to the identity provider. It is stateless; callers decide about
// retries.
type Client struct {
	oauthConfig  *oauth2.Config
	httpClient   *http.Client
	tokenInfoURL string
}

// NewClient creates a provider client from config.
func NewClient(cfg Config) *Client {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}

	tokenInfoURL := cfg.TokenInfoURL
	if tokenInfoURL == "" {
		tokenInfoURL = defaultTokenInfoURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoint,
		},
		httpClient:   &http.Client{Timeout: timeout},
		tokenInfoURL: tokenInfoURL,
	}
}

// AuthCodeURL builds the provider's authorization redirect URL.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// ClientID returns the configured client id (the expected token audience).
func (c *Client) ClientID() string {
	return c.oauthConfig.ClientID
}

// ExchangeCode exchanges an authorization code for tokens at the provider's
// token endpoint.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Tokens, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := c.oauthConfig.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, apperrors.NewUpstreamError("token exchange failed", string(retrieveErr.Body))
		}
		return nil, apperrors.NewUpstreamError("token exchange failed", err.Error())
	}

	idToken, _ := token.Extra("id_token").(string)

	return &Tokens{
		IDToken:      idToken,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}, nil
}

// tokenInfoResponse is the subset of the introspection payload we consume.
type tokenInfoResponse struct {
	Audience string `json:"aud"`
	Email    string `json:"email"`
}

// ValidateIdentity introspects the id token at the provider and returns the
// verified identity (email). A token whose own exp claim has already passed
// is rejected locally without the upstream round trip.
func (c *Client) ValidateIdentity(ctx context.Context, idToken string) (string, error) {
	if expired(idToken) {
		return "", apperrors.NewUpstreamError("token validation failed", "id token expired")
	}

	endpoint := c.tokenInfoURL + "?id_token=" + url.QueryEscape(idToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build introspection request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewUpstreamError("token validation failed", err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewUpstreamError("token validation failed", err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewUpstreamError("token validation failed", string(body))
	}

	var info tokenInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return "", apperrors.NewUpstreamError("token validation failed", "malformed introspection response")
	}

	if info.Audience != c.oauthConfig.ClientID {
		return "", apperrors.ErrAudienceMismatch
	}

	return info.Email, nil
}

// expired reports whether the token's exp claim has passed. The signature is
// not checked here; the provider remains the authority on validity. Tokens
// that do not parse at all are left for the provider to reject.
func expired(idToken string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}

	return exp.Before(time.Now())
}
