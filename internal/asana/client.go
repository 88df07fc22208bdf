package asana

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

	"bugshot-cli/internal/logging"

	"github.com/rs/zerolog"
)

const DefaultTimeout = 30 * time.Second

// Auth carries either a personal access token or the browser's login cookie.
type Auth struct {
	Token  string
	Cookie string
}

func (a Auth) Empty() bool {
	return strings.TrimSpace(a.Token) == "" && strings.TrimSpace(a.Cookie) == ""
}

// Credential is the secret that identifies the login session: the token when set, else the cookie.
func (a Auth) Credential() string {
	if a.Token != "" {
		return a.Token
	}
	return a.Cookie
}

type Client struct {
	baseURL string
	auth    Auth
	http    *http.Client
	log     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func NewClient(baseURL string, auth Auth, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		auth:    auth,
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     logging.For("asana"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []ErrorDetail   `json:"errors"`
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) authorize(req *http.Request) {
	switch {
	case strings.TrimSpace(c.auth.Token) != "":
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.auth.Token))
	case strings.TrimSpace(c.auth.Cookie) != "":
		req.AddCookie(&http.Cookie{Name: "ticket", Value: strings.TrimSpace(c.auth.Cookie)})
		// The API only honors cookie auth for requests that identify as a first-party client.
		req.Header.Set("X-Allow-Asana-Client", "1")
	}
}

// do issues a JSON request. body, when non-nil, is wrapped as {"data": body}; the response
// envelope's data is decoded into out (which may be nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(map[string]any{"data": body})
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), rdr)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	op := req.Method + " " + req.URL.Path
	c.authorize(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("op", op).Msg("request failed")
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}
	c.log.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("response")

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{Status: resp.StatusCode, Errors: []ErrorDetail{{Message: http.StatusText(resp.StatusCode)}}}
		}
		return &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode envelope: %w", err)}
	}
	if len(env.Errors) > 0 {
		return &APIError{Status: resp.StatusCode, Errors: env.Errors}
	}
	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Errors: []ErrorDetail{{Message: http.StatusText(resp.StatusCode)}}}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

// IsAPIError reports whether err came from an errors[] envelope.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
