package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"hermannm.dev/wrap"
)

const (
	// OAuth2 scope required for read-only reporting and admin listing
	AnalyticsReadOnlyScope = "https://www.googleapis.com/auth/analytics.readonly"

	// Refresh tokens 5 minutes before expiry
	TokenRefreshBuffer = 5 * time.Minute
)

// HTTPClientSource hands out an HTTP client that already carries credentials.
type HTTPClientSource interface {
	HTTPClient(ctx context.Context) (*http.Client, error)
}

// AuthClient exchanges a stored refresh token for access tokens.
type AuthClient struct {
	config       *oauth2.Config
	refreshToken string

	tokenMutex  sync.RWMutex
	cachedToken *oauth2.Token
	cacheExpiry time.Time
}

// NewAuthClient creates an authentication client from OAuth client credentials
// and the refresh token of the active preset.
func NewAuthClient(clientID, clientSecret, refreshToken string) (*AuthClient, error) {
	if clientID == "" || clientSecret == "" {
		return nil, wrap.Error(ErrNotAuthenticated, "OAuth client credentials not configured, run 'ga4cli config set' first")
	}
	if strings.TrimSpace(refreshToken) == "" {
		return nil, wrap.Error(ErrNotAuthenticated, "no refresh token, run 'ga4cli preset create' first")
	}

	return &AuthClient{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{AnalyticsReadOnlyScope},
		},
		refreshToken: strings.TrimSpace(refreshToken),
	}, nil
}

// AccessToken returns a valid access token, refreshing it when the cached one is near expiry.
func (a *AuthClient) AccessToken(ctx context.Context) (*oauth2.Token, error) {
	a.tokenMutex.RLock()
	if a.cachedToken != nil && time.Now().Before(a.cacheExpiry) {
		token := a.cachedToken
		a.tokenMutex.RUnlock()
		return token, nil
	}
	a.tokenMutex.RUnlock()

	return a.refresh(ctx)
}

func (a *AuthClient) refresh(ctx context.Context) (*oauth2.Token, error) {
	a.tokenMutex.Lock()
	defer a.tokenMutex.Unlock()

	// Another caller may have refreshed while we waited for the lock
	if a.cachedToken != nil && time.Now().Before(a.cacheExpiry) {
		return a.cachedToken, nil
	}

	tokenSource := a.config.TokenSource(ctx, &oauth2.Token{RefreshToken: a.refreshToken})
	newToken, err := tokenSource.Token()
	if err != nil {
		return nil, wrap.Error(fmt.Errorf("%w: %w", ErrNotAuthenticated, err), "failed to refresh access token")
	}
	if newToken.AccessToken == "" || !newToken.Valid() {
		return nil, wrap.Error(ErrNotAuthenticated, "received invalid access token")
	}

	cacheExpiry := newToken.Expiry
	if !cacheExpiry.IsZero() {
		cacheExpiry = cacheExpiry.Add(-TokenRefreshBuffer)
	} else {
		cacheExpiry = time.Now().Add(1 * time.Hour)
	}

	a.cachedToken = newToken
	a.cacheExpiry = cacheExpiry

	return newToken, nil
}

// HTTPClient returns an HTTP client that attaches a bearer token to every request.
func (a *AuthClient) HTTPClient(ctx context.Context) (*http.Client, error) {
	token, err := a.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	tokenSource := oauth2.ReuseTokenSource(token, &refreshTokenSource{authClient: a, ctx: ctx})
	return oauth2.NewClient(ctx, tokenSource), nil
}

// ValidateRefreshToken checks the token format and performs one refresh.
func ValidateRefreshToken(ctx context.Context, clientID, clientSecret, refreshToken string) error {
	// Google refresh tokens start with "1//"
	if !strings.HasPrefix(refreshToken, "1//") {
		return fmt.Errorf("invalid refresh token format, Google refresh tokens start with '1//'")
	}

	authClient, err := NewAuthClient(clientID, clientSecret, refreshToken)
	if err != nil {
		return err
	}
	if _, err := authClient.refresh(ctx); err != nil {
		return wrap.Error(err, "refresh token validation failed")
	}
	return nil
}

type refreshTokenSource struct {
	authClient *AuthClient
	ctx        context.Context
}

func (r *refreshTokenSource) Token() (*oauth2.Token, error) {
	return r.authClient.AccessToken(r.ctx)
}

// StaticToken serves a caller-supplied bearer token, for callers that manage
// OAuth themselves (GA4CLI_ACCESS_TOKEN).
type StaticToken string

func (t StaticToken) HTTPClient(ctx context.Context) (*http.Client, error) {
	if t == "" {
		return nil, ErrNotAuthenticated
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: string(t)})), nil
}
