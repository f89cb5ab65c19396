// Package apiclient is a thin client for the inventory API's account
// endpoints. Authenticated calls re-send the backend token the session
// carries; the client holds no credential state of its own.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
)

const (
	registerPath = "/api/register/"
	passwordPath = "/api/user/password/"
	accountPath  = "/api/user/"
	profilePath  = "/api/protected/"
)

// Logger interface for client diagnostics without import cycles
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Client talks to the inventory API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokenCookie string
	logger      Logger
}

// New creates a Client against the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTokenCookie makes authenticated calls carry the backend token in the
// named cookie in addition to the Authorization header. Deployments of the
// API that predate bearer support read the cookie.
func WithTokenCookie(name string) Option {
	return func(c *Client) {
		c.tokenCookie = name
	}
}

// Profile is the authenticated account view the API exposes.
type Profile struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Register creates an account. The API owns password policy and hashing;
// this forwards the pair and maps the conflict case.
func (c *Client) Register(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	resp, raw, err := c.do(ctx, http.MethodPost, registerPath, "", body)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return errors.New("account already exists", errors.CategoryConflict).
			WithCode(errors.CodeConflict)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return apiError("register", resp.StatusCode, raw)
	}

	return nil
}

// ChangePassword updates the account password. Requires the backend token
// from an authenticated session.
func (c *Client) ChangePassword(ctx context.Context, token, oldPassword, newPassword string) error {
	body := map[string]string{
		"oldPassword": oldPassword,
		"newPassword": newPassword,
	}
	resp, raw, err := c.do(ctx, http.MethodPut, passwordPath, token, body)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return errors.New("password change rejected", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return apiError("change_password", resp.StatusCode, raw)
	}

	return nil
}

// DeleteAccount removes the account behind the token.
func (c *Client) DeleteAccount(ctx context.Context, token string) error {
	resp, raw, err := c.do(ctx, http.MethodDelete, accountPath, token, nil)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError("delete_account", resp.StatusCode, raw)
	}

	return nil
}

// Profile fetches the authenticated account view.
func (c *Client) Profile(ctx context.Context, token string) (*Profile, error) {
	resp, raw, err := c.do(ctx, http.MethodGet, profilePath, token, nil)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError("profile", resp.StatusCode, raw)
	}

	var profile Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to decode profile response")
	}

	return &profile, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body any) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to build request")
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		if c.tokenCookie != "" {
			req.AddCookie(&http.Cookie{Name: c.tokenCookie, Value: token})
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("api request failed: %s %s: %s", method, path, err)
		return nil, nil, errors.Wrap(err, errors.CategoryOperation, "api request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to read response body")
	}

	return resp, raw, nil
}

func apiError(operation string, status int, raw []byte) error {
	message := "api request rejected"
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		message = payload.Error
	}

	category := errors.CategoryOperation
	code := errors.CodeInternal
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		category = errors.CategoryAuth
		code = errors.CodeUnauthorized
	}

	return errors.New(message, category).WithCode(code).WithMetadata(map[string]any{
		"operation": operation,
		"status":    status,
	})
}
