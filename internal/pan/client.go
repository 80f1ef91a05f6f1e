package pan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// Production endpoints. Tests substitute httptest server URLs.
const (
	DefaultBaseURL  = "https://pan.baidu.com"
	DefaultOAuthURL = "https://openapi.baidu.com/oauth/2.0"
)

const defaultUserAgent = "baidupan-go/0.1"

// API endpoint paths. The method selector rides in the path's query string
// and the remaining parameters are appended per call.
const (
	endpointFile       = "/rest/2.0/xpan/file"
	endpointMultimedia = "/rest/2.0/xpan/multimedia"
	endpointNas        = "/rest/2.0/xpan/nas"
	endpointShare      = "/rest/2.0/xpan/share"
	endpointQuota      = "/api/quota"
)

// Client is a synchronous HTTP client for the Netdisk API. It owns the
// Credentials it was built with and refreshes the access token before any
// gated call when the token is close to expiry.
//
// The client issues no concurrent requests of its own. It is safe to share
// across goroutines: token refresh is the only mutation and it is guarded
// by the Credentials mutex plus a singleflight group.
type Client struct {
	baseURL    string
	oauthURL   string
	userAgent  string
	httpClient *http.Client
	creds      *Credentials
	logger     *slog.Logger

	// refreshGroup collapses concurrent token refreshes into one request.
	refreshGroup singleflight.Group

	// now is the clock used for expiry checks. Tests override it.
	now func() time.Time
}

// NewClient creates a Netdisk API client. Empty baseURL/oauthURL select the
// production endpoints; nil httpClient and logger select defaults.
func NewClient(baseURL, oauthURL string, httpClient *http.Client, creds *Credentials, logger *slog.Logger) *Client {
	if creds == nil {
		panic("pan: NewClient requires non-nil Credentials")
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if oauthURL == "" {
		oauthURL = DefaultOAuthURL
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		oauthURL:   oauthURL,
		userAgent:  defaultUserAgent,
		httpClient: httpClient,
		creds:      creds,
		logger:     logger,
		now:        time.Now,
	}
}

// SetUserAgent overrides the User-Agent header sent on every request.
// An empty value keeps the default.
func (c *Client) SetUserAgent(ua string) {
	if ua != "" {
		c.userAgent = ua
	}
}

// Credentials returns the credentials owned by this client.
func (c *Client) Credentials() *Credentials {
	return c.creds
}

// authQuery validates the token (refreshing if needed) and returns a query
// parameter set pre-populated with access_token. Every gated call starts here.
func (c *Client) authQuery(ctx context.Context) (url.Values, error) {
	tok, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	return url.Values{"access_token": {tok}}, nil
}

// apiURL joins an endpoint path (which may already carry a method selector)
// with the per-call query parameters.
func (c *Client) apiURL(endpoint string, query url.Values) string {
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}

	return c.baseURL + endpoint + sep + query.Encode()
}

// getJSON issues a GET and decodes the JSON payload into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	return c.doJSON(ctx, http.MethodGet, c.apiURL(endpoint, query), "", nil, out)
}

// postForm issues a POST with a urlencoded form body and decodes the JSON
// payload into out. Query parameters (access_token and method selectors)
// stay in the URL; the method-specific fields travel in the body.
func (c *Client) postForm(ctx context.Context, endpoint string, query, form url.Values, out any) error {
	return c.doJSON(ctx, http.MethodPost, c.apiURL(endpoint, query),
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()), out)
}

// postFile issues a multipart POST carrying content under the single form
// field "file", and decodes the JSON payload into out. Bodies are at most
// one chunk (4 MiB), so assembling them in memory is fine.
func (c *Client) postFile(ctx context.Context, endpoint string, query url.Values, content io.Reader, out any) error {
	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", "file")
	if err != nil {
		return fmt.Errorf("pan: creating multipart field: %w", err)
	}

	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("pan: assembling multipart body: %w", err)
	}

	if err := mw.Close(); err != nil {
		return fmt.Errorf("pan: finishing multipart body: %w", err)
	}

	return c.doJSON(ctx, http.MethodPost, c.apiURL(endpoint, query), mw.FormDataContentType(), &buf, out)
}

// doJSON executes a single request and decodes the response body as JSON.
// No retry: the protocol is strictly sequential and transport failures
// propagate to the caller. The server reports its own failures inside the
// payload (errno), so the HTTP status is not inspected here.
func (c *Client) doJSON(ctx context.Context, method, rawURL, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("pan: creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.logger.Debug("api request",
		slog.String("method", method),
		slog.String("url", req.URL.Path),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pan: %s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("pan: decoding response from %s (status %d): %w", req.URL.Path, resp.StatusCode, err)
	}

	return nil
}
