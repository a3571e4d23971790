package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient configures the Client to use a custom http.Client.
//
// This is useful for setting timeouts, proxies, tracing, or test transports.
// The same client is used for JWKS fetches made by an Authenticator built on
// top of this Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithAPIURL overrides the backend API base URL.
func WithAPIURL(apiURL string) ClientOption {
	return func(c *Client) {
		if apiURL != "" {
			c.apiURL = strings.TrimRight(apiURL, "/")
		}
	}
}

// WithAPIVersion overrides the backend API version path segment.
func WithAPIVersion(version string) ClientOption {
	return func(c *Client) {
		if version != "" {
			c.apiVersion = strings.Trim(version, "/")
		}
	}
}

// WithRetries sets how many times a failed remote interstitial fetch is
// retried. Zero disables retries.
func WithRetries(n uint) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithClientLogger sets the logger used for retry diagnostics.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// Client talks to the backend API with an instance secret key.
//
// The Client never inspects or mutates end-user authentication state; it
// authenticates as the instance.
type Client struct {
	secretKey  string
	apiURL     string
	apiVersion string
	httpClient *http.Client
	maxRetries uint
	logger     *slog.Logger
}

// NewClient creates a backend API client authenticated with secretKey (or a
// legacy API key).
func NewClient(secretKey string, opts ...ClientOption) *Client {
	c := &Client{
		secretKey:  secretKey,
		apiURL:     DefaultAPIURL,
		apiVersion: DefaultAPIVersion,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxRetries: 2,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// endpoint joins the API base, version and path.
func (c *Client) endpoint(path string) string {
	return c.apiURL + "/" + c.apiVersion + "/" + strings.TrimLeft(path, "/")
}

// JWKSURL is the endpoint serving the instance JSON Web Key Set.
func (c *Client) JWKSURL() string {
	return c.endpoint("/jwks")
}

// do performs an authenticated request and returns the raw response.
// Non-2xx answers are converted into *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, accept string) (*http.Response, error) {
	if c.secretKey == "" {
		return nil, ErrMissingSecretKey
	}

	u := c.endpoint(path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(HeaderAuthorization, "Bearer "+c.secretKey)
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return nil, apiErr
	}

	return resp, nil
}

// doJSON performs a request and decodes the JSON response into out.
func doJSON[T any](ctx context.Context, c *Client, method, path string, query url.Values) (*T, error) {
	resp, err := c.do(ctx, method, path, query, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("backend: decode %s: %w", path, err)
	}
	return &out, nil
}

// EmailAddress is an email address attached to a User.
type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// User mirrors the backend API user resource.
type User struct {
	ID                    string         `json:"id"`
	Username              *string        `json:"username"`
	FirstName             *string        `json:"first_name"`
	LastName              *string        `json:"last_name"`
	ImageURL              string         `json:"image_url"`
	PrimaryEmailAddressID *string        `json:"primary_email_address_id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
	Banned                bool           `json:"banned"`
	CreatedAt             int64          `json:"created_at"`
	UpdatedAt             int64          `json:"updated_at"`
}

// PrimaryEmailAddress returns the primary email of the user, or "".
func (u *User) PrimaryEmailAddress() string {
	if u.PrimaryEmailAddressID == nil {
		return ""
	}
	for _, e := range u.EmailAddresses {
		if e.ID == *u.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	return ""
}

// Session mirrors the backend API session resource.
type Session struct {
	ID           string `json:"id"`
	ClientID     string `json:"client_id"`
	UserID       string `json:"user_id"`
	Status       string `json:"status"`
	LastActiveAt int64  `json:"last_active_at"`
	ExpireAt     int64  `json:"expire_at"`
	AbandonAt    int64  `json:"abandon_at"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

// GetUser fetches a user by id.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, errors.New("backend: user id is required")
	}
	return doJSON[User](ctx, c, http.MethodGet, "/users/"+url.PathEscape(userID), nil)
}

// GetSession fetches a session by id.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, errors.New("backend: session id is required")
	}
	return doJSON[Session](ctx, c, http.MethodGet, "/sessions/"+url.PathEscape(sessionID), nil)
}

// ListSessionsParams filters ListSessions.
type ListSessionsParams struct {
	UserID string
	Status string
	Limit  int
	Offset int
}

// ListSessions returns one page of sessions.
func (c *Client) ListSessions(ctx context.Context, params ListSessionsParams) (*PaginatedList[Session], error) {
	q := url.Values{}
	q.Set("paginated", "true")
	if params.UserID != "" {
		q.Set("user_id", params.UserID)
	}
	if params.Status != "" {
		q.Set("status", params.Status)
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Offset > 0 {
		q.Set("offset", strconv.Itoa(params.Offset))
	}
	return doJSON[PaginatedList[Session]](ctx, c, http.MethodGet, "/sessions", q)
}

// RemotePrivateInterstitial fetches the interstitial page rendered by the
// backend API. Transient failures (network errors, 5xx, 429) are retried with
// exponential backoff; other API errors are returned immediately.
func (c *Client) RemotePrivateInterstitial(ctx context.Context) (string, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 100 * time.Millisecond
	expBackoff.MaxInterval = 2 * time.Second

	operation := func() (string, error) {
		resp, err := c.do(ctx, http.MethodGet, "/internal/interstitial", nil, "text/html")
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Status < 500 && apiErr.Status != http.StatusTooManyRequests {
				return "", backoff.Permanent(err)
			}
			if errors.Is(err, ErrMissingSecretKey) {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}
		return string(body), nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(c.maxRetries+1),
		backoff.WithNotify(func(err error, d time.Duration) {
			c.logger.Warn("retrying remote interstitial fetch", "error", err, "backoff", d)
		}),
	)
}
