// Package remote implements the identity and document store ports against
// a badbar server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hammamikhairi/badbar/internal/api"
	"github.com/hammamikhairi/badbar/internal/domain"
	"github.com/hammamikhairi/badbar/internal/logger"
)

// Compile-time interface check.
var _ domain.PrincipalRegistry = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for plain requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout for plain requests. Zero keeps
// the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// Client talks to a badbar server. It is the principal registry; the
// document store is obtained with Store.
type Client struct {
	base   *url.URL
	http   *http.Client
	dialer *websocket.Dialer
	log    *logger.Logger
}

// New creates a client for the server at baseURL (http or https).
func New(baseURL string, log *logger.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base: u,
		http: &http.Client{Timeout: 15 * time.Second},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 15 * time.Second,
		},
		log: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue asks the server for a new anonymous principal.
func (c *Client) Issue(ctx context.Context) (domain.Principal, error) {
	var out api.AnonymousResponse
	if err := c.do(ctx, http.MethodPost, api.PathAnonymous, "", nil, &out); err != nil {
		return "", err
	}
	p := domain.Principal(out.UID)
	if !p.Valid() {
		return "", errors.New("server issued an empty principal")
	}
	return p, nil
}

// Known reports whether the server issued p.
func (c *Client) Known(ctx context.Context, p domain.Principal) (bool, error) {
	if !p.Valid() {
		return false, nil
	}
	err := c.do(ctx, http.MethodGet, api.PathPrincipal+url.PathEscape(string(p)), "", nil, nil)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, token domain.Principal, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url("http", path, nil), body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token.Valid() {
		req.Header.Set("Authorization", "Bearer "+string(token))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return responseError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// url builds an absolute URL on the server. scheme "ws" maps http to ws
// and https to wss.
func (c *Client) url(scheme, path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if scheme == "ws" {
		if u.Scheme == "https" {
			u.Scheme = "wss"
		} else {
			u.Scheme = "ws"
		}
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func responseError(resp *http.Response) error {
	var body api.ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
	}
	return api.Error(resp.StatusCode, body.Code, body.Error)
}
