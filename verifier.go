package session

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

const defaultLoginPath = "/api/login/"

// BackendVerifier exchanges an email/password pair for a backend-issued
// token by calling the inventory API's login endpoint. The client carries a
// cookie jar so any session artifacts the API sets survive follow-up calls
// made during the same exchange.
type BackendVerifier struct {
	baseURL    string
	loginPath  string
	httpClient *http.Client
	logger     Logger
}

var _ CredentialVerifier = (*BackendVerifier)(nil)

// NewBackendVerifier creates a verifier against the inventory API at baseURL.
func NewBackendVerifier(baseURL string, logger Logger) *BackendVerifier {
	if logger == nil {
		logger = defLogger{}
	}

	jar, _ := cookiejar.New(nil)
	return &BackendVerifier{
		baseURL:   strings.TrimRight(baseURL, "/"),
		loginPath: defaultLoginPath,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
		logger: logger,
	}
}

// WithHTTPClient overrides the underlying client. Tests use it to point at
// an httptest server with custom transport settings.
func (v *BackendVerifier) WithHTTPClient(client *http.Client) *BackendVerifier {
	if client != nil {
		v.httpClient = client
	}
	return v
}

// WithLoginPath overrides the login endpoint path.
func (v *BackendVerifier) WithLoginPath(path string) *BackendVerifier {
	if path != "" {
		v.loginPath = path
	}
	return v
}

type loginRequestBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponseBody struct {
	Email string `json:"email"`
	Token string `json:"token"`
	Name  string `json:"name,omitempty"`
}

// Verify posts the credentials to the login endpoint. A rejection carries no
// hint about which half of the pair was wrong; an accepted exchange without
// a token is a contract violation on the backend's side and is reported as a
// malformed response, never as a user error.
func (v *BackendVerifier) Verify(ctx context.Context, email, password string) (*BackendAuthResult, error) {
	payload, err := json.Marshal(loginRequestBody{Email: email, Password: password})
	if err != nil {
		return nil, ErrMalformedBackendResponse.Clone().WithMetadata(map[string]any{
			"cause": err.Error(),
		})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+v.loginPath, bytes.NewReader(payload))
	if err != nil {
		return nil, ErrMalformedBackendResponse.Clone().WithMetadata(map[string]any{
			"cause": err.Error(),
		})
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		v.logger.Error("BackendVerifier login request failed: %s", err)
		clone := ErrAuthenticationFailed.Clone()
		clone.Source = err
		return nil, clone.WithMetadata(map[string]any{"cause": err.Error()})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrMalformedBackendResponse.Clone().WithMetadata(map[string]any{
			"cause": err.Error(),
		})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		v.logger.Info("BackendVerifier login rejected: status=%d", resp.StatusCode)
		return nil, ErrAuthenticationFailed.Clone().WithMetadata(map[string]any{
			"status": resp.StatusCode,
		})
	}

	var loginResp loginResponseBody
	if err := json.Unmarshal(body, &loginResp); err != nil {
		v.logger.Error("BackendVerifier could not decode login response: %s", err)
		clone := ErrMalformedBackendResponse.Clone()
		clone.Source = err
		return nil, clone.WithMetadata(map[string]any{"cause": err.Error()})
	}

	if loginResp.Token == "" {
		v.logger.Error("BackendVerifier login response missing token")
		return nil, ErrMalformedBackendResponse.Clone().WithMetadata(map[string]any{
			"cause": "missing token",
		})
	}

	identity := loginResp.Email
	if identity == "" {
		identity = email
	}

	return &BackendAuthResult{
		Identity:     identity,
		BackendToken: loginResp.Token,
		DisplayName:  loginResp.Name,
	}, nil
}
