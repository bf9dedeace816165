package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// GraphScope is the OAuth scope requested for Microsoft Graph tokens.
const GraphScope = "https://graph.microsoft.com/.default"

const tokenURLTemplate = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"

// Tokens are refreshed this long before their reported expiry.
const expiryMargin = 30 * time.Second

// Authentication modes supported against the Microsoft identity platform.
const (
	ModeClientCredentials = "client_credentials"
	ModeRefreshToken      = "refresh_token"
)

// TokenSource supplies a bearer token for outbound Graph requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken adapts a pre-acquired access token into a TokenSource.
// It is assumed valid for the lifetime of the session.
type StaticToken string

// Token returns the wrapped token.
func (t StaticToken) Token(ctx context.Context) (string, error) {
	return string(t), nil
}

// Credentials holds the identity platform settings for acquiring tokens.
type Credentials struct {
	Mode         string
	TenantID     string
	ClientID     string
	ClientSecret string
	RefreshToken string
	RedirectURI  string
}

// Validate checks that the credentials are complete for the selected mode.
func (c Credentials) Validate() error {
	if c.Mode != ModeClientCredentials && c.Mode != ModeRefreshToken {
		return fmt.Errorf("auth mode must be either %q or %q, got %q",
			ModeClientCredentials, ModeRefreshToken, c.Mode)
	}

	if c.TenantID == "" || c.ClientID == "" {
		return fmt.Errorf("tenant_id and client_id must be set")
	}

	if c.Mode == ModeClientCredentials && c.ClientSecret == "" {
		return fmt.Errorf("client_secret is required for client credentials")
	}

	if c.Mode == ModeRefreshToken && c.RefreshToken == "" {
		return fmt.Errorf("refresh_token is required for delegated auth")
	}

	return nil
}

// OAuthConfig configures an OAuthTokenSource.
type OAuthConfig struct {
	Credentials Credentials
	Endpoint    string // token endpoint override, defaults to the tenant's v2.0 endpoint
	Timeout     time.Duration
	Logger      *zerolog.Logger
}

// OAuthTokenSource acquires access tokens from the Microsoft identity
// platform using either the client-credentials or refresh-token grant.
// Acquired tokens are cached until shortly before expiry.
type OAuthTokenSource struct {
	creds    Credentials
	endpoint string
	client   *http.Client
	logger   zerolog.Logger

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewOAuthTokenSource validates the credentials and builds a token source.
func NewOAuthTokenSource(cfg OAuthConfig) (*OAuthTokenSource, error) {
	if err := cfg.Credentials.Validate(); err != nil {
		return nil, err
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf(tokenURLTemplate, cfg.Credentials.TenantID)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &OAuthTokenSource{
		creds:    cfg.Credentials,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}, nil
}

// Token returns a valid access token, requesting a fresh one when the
// cached token is absent or about to expire.
func (s *OAuthTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.expires) {
		return s.token, nil
	}

	token, expiresIn, err := s.fetchToken(ctx)
	if err != nil {
		return "", err
	}

	s.token = token
	s.expires = time.Now().Add(time.Duration(expiresIn)*time.Second - expiryMargin)
	s.logger.Debug().
		Str("mode", s.creds.Mode).
		Int("expires_in", expiresIn).
		Msg("acquired access token")

	return token, nil
}

func (s *OAuthTokenSource) fetchToken(ctx context.Context) (string, int, error) {
	form := url.Values{}
	form.Set("client_id", s.creds.ClientID)
	form.Set("client_secret", s.creds.ClientSecret)
	form.Set("scope", GraphScope)
	form.Set("grant_type", s.creds.Mode)

	if s.creds.Mode == ModeRefreshToken {
		form.Set("refresh_token", s.creds.RefreshToken)
		if s.creds.RedirectURI != "" {
			form.Set("redirect_uri", s.creds.RedirectURI)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", 0, fmt.Errorf("failed to obtain access token (status %d): %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", 0, fmt.Errorf("failed to decode token response: %w", err)
	}

	if body.AccessToken == "" {
		return "", 0, fmt.Errorf("token response missing access_token")
	}

	return body.AccessToken, body.ExpiresIn, nil
}
