package pan

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// DefaultScope is the permission scope requested when none is given.
const DefaultScope = "basic,netdisk"

// tokenExpirySkew is how long before the recorded expiry a token is treated
// as stale and refreshed.
const tokenExpirySkew = 60 * time.Second

// Credentials holds the application keys and the user's token state.
// Token fields are mutated in place by the code exchange and refresh calls;
// all access goes through the mutex so a client shared across goroutines
// cannot observe a half-written token.
type Credentials struct {
	AppKey    string
	SecretKey string

	// AutoRefresh enables the pre-expiry refresh in gated calls.
	AutoRefresh bool

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time // zero = expiry unknown, never auto-refresh
}

// NewCredentials returns Credentials with auto-refresh enabled and no token.
func NewCredentials(appKey, secretKey string) *Credentials {
	return &Credentials{
		AppKey:      appKey,
		SecretKey:   secretKey,
		AutoRefresh: true,
	}
}

// SetTokens overwrites the token state. An empty refresh token keeps the
// existing one; a zero expiresAt marks the expiry as unknown.
func (c *Credentials) SetTokens(access, refresh string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.accessToken = access
	if refresh != "" {
		c.refreshToken = refresh
	}

	c.expiresAt = expiresAt
}

// Tokens returns a consistent snapshot of the token state.
func (c *Credentials) Tokens() (access, refresh string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.accessToken, c.refreshToken, c.expiresAt
}

// Token snapshots the state as an oauth2.Token for persistence.
func (c *Credentials) Token() *oauth2.Token {
	access, refresh, expiresAt := c.Tokens()

	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		Expiry:       expiresAt,
	}
}

// ApplyToken loads token state from a persisted oauth2.Token.
func (c *Credentials) ApplyToken(tok *oauth2.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.accessToken = tok.AccessToken
	c.refreshToken = tok.RefreshToken
	c.expiresAt = tok.Expiry
}

// AuthorizeURL returns the URL the user visits to authorize the application.
// An empty scope selects DefaultScope. The parameter order — client_id,
// response_type, redirect_uri, scope — and the unescaped comma in the scope
// are part of the observable contract, so the query is built literally
// rather than through url.Values (which would reorder and escape it).
func (c *Client) AuthorizeURL(redirectURI, scope string) string {
	if scope == "" {
		scope = DefaultScope
	}

	return c.oauthURL + "/authorize" +
		"?client_id=" + c.creds.AppKey +
		"&response_type=code" +
		"&redirect_uri=" + redirectURI +
		"&scope=" + scope
}

// ExchangeCode trades an authorization code for tokens. On success the
// client's Credentials are updated in place and the raw payload is returned.
// A response without an access_token yields an *AuthError.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenResponse, error) {
	q := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {c.creds.AppKey},
		"client_secret": {c.creds.SecretKey},
		"redirect_uri":  {redirectURI},
	}

	return c.requestToken(ctx, q)
}

// RefreshToken exchanges the refresh token for a fresh access token,
// updating the Credentials in place. Fails with ErrNoRefreshToken before
// any network call when no refresh token is held.
func (c *Client) RefreshToken(ctx context.Context) (*TokenResponse, error) {
	_, refresh, _ := c.creds.Tokens()
	if refresh == "" {
		return nil, ErrNoRefreshToken
	}

	q := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refresh},
		"client_id":     {c.creds.AppKey},
		"client_secret": {c.creds.SecretKey},
	}

	return c.requestToken(ctx, q)
}

// requestToken calls the OAuth token endpoint. The endpoint takes its
// parameters in the query string of a GET and does not use errno: success
// is keyed on the presence of access_token.
func (c *Client) requestToken(ctx context.Context, q url.Values) (*TokenResponse, error) {
	var tr TokenResponse
	if err := c.doJSON(ctx, http.MethodGet, c.oauthURL+"/token?"+q.Encode(), "", nil, &tr); err != nil {
		return nil, err
	}

	if tr.AccessToken == "" {
		return nil, &AuthError{Code: tr.ErrorCode, Description: tr.ErrorDescription}
	}

	var expiresAt time.Time
	if tr.ExpiresIn > 0 {
		expiresAt = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	c.creds.SetTokens(tr.AccessToken, tr.RefreshToken, expiresAt)

	c.logger.Info("token acquired",
		slog.Time("expires_at", expiresAt),
	)

	return &tr, nil
}

// ensureToken validates the stored access token before a gated call.
// Missing token fails immediately with ErrNoAccessToken. A token within
// tokenExpirySkew of expiry is refreshed synchronously first; concurrent
// callers share a single refresh via singleflight.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	access, _, expiresAt := c.creds.Tokens()
	if access == "" {
		return "", ErrNoAccessToken
	}

	stale := c.creds.AutoRefresh && !expiresAt.IsZero() &&
		!c.now().Before(expiresAt.Add(-tokenExpirySkew))

	if stale {
		c.logger.Debug("access token near expiry, refreshing",
			slog.Time("expires_at", expiresAt),
		)

		if _, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
			return c.RefreshToken(ctx)
		}); err != nil {
			return "", err
		}

		access, _, _ = c.creds.Tokens()
	}

	return access, nil
}
