package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	session "github.com/warebase/go-session"
)

// ProfileExchanger turns a provider profile into the same backend auth
// result the password flow produces. The backend stays the only identity
// authority; the provider only vouches for the email.
type ProfileExchanger interface {
	Exchange(ctx context.Context, profile *SocialProfile, token *Token) (*session.BackendAuthResult, error)
}

// TokenIssuer mints a session token from a verified backend result.
// session.Auther satisfies it.
type TokenIssuer interface {
	IssueSession(result *session.BackendAuthResult) (string, error)
}

// BridgeConfig configures the OAuth bridge.
type BridgeConfig struct {
	DefaultRedirectURL   string
	StateEncryptionKey   []byte
	StateHMACKey         []byte
	StateTTL             time.Duration
	RequireEmailVerified bool
}

// Bridge orchestrates the provider flows and hands their outcome to the
// regular session pipeline.
type Bridge struct {
	providers    map[string]SocialProvider
	stateManager StateManager
	exchanger    ProfileExchanger
	issuer       TokenIssuer
	config       BridgeConfig
}

// BridgeOption configures the bridge.
type BridgeOption func(*Bridge)

// NewBridge creates a Bridge. The exchanger and issuer are required; the
// state manager defaults to the encrypted implementation.
func NewBridge(exchanger ProfileExchanger, issuer TokenIssuer, config BridgeConfig, opts ...BridgeOption) *Bridge {
	cfg := config
	if cfg.StateTTL == 0 {
		cfg.StateTTL = 10 * time.Minute
	}

	b := &Bridge{
		providers: make(map[string]SocialProvider),
		exchanger: exchanger,
		issuer:    issuer,
		config:    cfg,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	if b.stateManager == nil {
		b.stateManager = NewEncryptedStateManager(
			cfg.StateEncryptionKey,
			cfg.StateHMACKey,
			cfg.StateTTL,
		)
	}

	return b
}

// WithProvider registers a social provider.
func WithProvider(provider SocialProvider) BridgeOption {
	return func(b *Bridge) {
		if provider == nil {
			return
		}
		b.providers[provider.Name()] = provider
	}
}

// WithStateManager sets a custom state manager.
func WithStateManager(sm StateManager) BridgeOption {
	return func(b *Bridge) {
		b.stateManager = sm
	}
}

// AuthRedirect contains the authorization URL for redirecting users.
type AuthRedirect struct {
	URL      string
	State    string
	Provider string
}

// AuthResult contains the result of a completed provider login.
type AuthResult struct {
	SessionToken string
	Provider     string
	Profile      *SocialProfile
	RedirectURL  string
}

// BeginAuthOption configures the auth initiation.
type BeginAuthOption func(*beginAuthConfig)

type beginAuthConfig struct {
	redirectURL string
}

// WithRedirectURL sets the post-auth redirect URL.
func WithRedirectURL(url string) BeginAuthOption {
	return func(c *beginAuthConfig) {
		c.redirectURL = url
	}
}

// BeginAuth starts the OAuth flow for a provider: a PKCE pair is generated
// and sealed into the state alongside the post-login redirect.
func (b *Bridge) BeginAuth(ctx context.Context, providerName string, opts ...BeginAuthOption) (*AuthRedirect, error) {
	provider, ok := b.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	cfg := &beginAuthConfig{
		redirectURL: b.config.DefaultRedirectURL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	codeVerifier, err := generateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}
	codeChallenge := computeCodeChallenge(codeVerifier)

	state := &OAuthState{
		Nonce:        generateNonce(),
		Provider:     providerName,
		CodeVerifier: codeVerifier,
		RedirectURL:  cfg.redirectURL,
		IssuedAt:     time.Now().Unix(),
		ExpiresAt:    time.Now().Add(b.config.StateTTL).Unix(),
	}

	stateToken, err := b.stateManager.Encode(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}

	authURL := provider.AuthCodeURL(stateToken, WithPKCE(codeChallenge, "S256"))

	return &AuthRedirect{
		URL:      authURL,
		State:    stateToken,
		Provider: providerName,
	}, nil
}

// CompleteAuth finishes the OAuth flow after callback: exchange the code,
// fetch the profile, trade it with the backend for its token, and mint the
// session. A failure anywhere surfaces as an authentication error, never as
// a partial session.
func (b *Bridge) CompleteAuth(ctx context.Context, providerName, code, stateToken string) (*AuthResult, error) {
	state, err := b.stateManager.Decode(stateToken)
	if err != nil {
		if goerrors.Is(err, ErrStateExpired) {
			return nil, ErrStateExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if state.Provider != providerName {
		return nil, fmt.Errorf("%w: provider mismatch", ErrInvalidState)
	}

	provider, ok := b.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	token, err := provider.Exchange(ctx, code, WithCodeVerifier(state.CodeVerifier))
	if err != nil {
		return nil, wrapProviderError(ErrTokenExchangeFailed, providerName, "exchange", err)
	}

	profile, err := provider.UserInfo(ctx, token)
	if err != nil {
		return nil, wrapProviderError(ErrUserInfoFailed, providerName, "user_info", err)
	}

	if b.config.RequireEmailVerified && !profile.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	result, err := b.exchanger.Exchange(ctx, profile, token)
	if err != nil {
		return nil, wrapProviderError(ErrBridgeExchangeFailed, providerName, "backend_exchange", err)
	}

	sessionToken, err := b.issuer.IssueSession(result)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		SessionToken: sessionToken,
		Provider:     providerName,
		Profile:      profile,
		RedirectURL:  state.RedirectURL,
	}, nil
}

// ListProviders returns all registered providers.
func (b *Bridge) ListProviders() []ProviderInfo {
	var providers []ProviderInfo
	for name, p := range b.providers {
		providers = append(providers, ProviderInfo{
			Name:    name,
			AuthURL: p.AuthCodeURL(""),
		})
	}
	return providers
}

// ProviderInfo describes an available provider.
type ProviderInfo struct {
	Name    string
	AuthURL string
}

const defaultSocialLoginPath = "/api/social-login/"

// BackendExchanger implements ProfileExchanger against the inventory API's
// social login endpoint. The API answers with the same {email, token} shape
// the password login returns.
type BackendExchanger struct {
	baseURL    string
	path       string
	httpClient *http.Client
}

var _ ProfileExchanger = (*BackendExchanger)(nil)

// NewBackendExchanger creates an exchanger against the API at baseURL.
func NewBackendExchanger(baseURL string) *BackendExchanger {
	return &BackendExchanger{
		baseURL:    strings.TrimRight(baseURL, "/"),
		path:       defaultSocialLoginPath,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithHTTPClient overrides the underlying client.
func (e *BackendExchanger) WithHTTPClient(client *http.Client) *BackendExchanger {
	if client != nil {
		e.httpClient = client
	}
	return e
}

// WithPath overrides the social login endpoint path.
func (e *BackendExchanger) WithPath(path string) *BackendExchanger {
	if path != "" {
		e.path = path
	}
	return e
}

type socialLoginRequest struct {
	Provider       string `json:"provider"`
	ProviderUserID string `json:"provider_user_id"`
	Email          string `json:"email"`
	Name           string `json:"name,omitempty"`
	AccessToken    string `json:"access_token"`
}

type socialLoginResponse struct {
	Email string `json:"email"`
	Token string `json:"token"`
	Name  string `json:"name,omitempty"`
}

// Exchange trades the provider profile for a backend token. The access token
// travels along so the backend can double check the identity with the
// provider if it wants to.
func (e *BackendExchanger) Exchange(ctx context.Context, profile *SocialProfile, token *Token) (*session.BackendAuthResult, error) {
	if profile == nil || profile.Email == "" {
		return nil, ErrBridgeExchangeFailed
	}

	reqBody := socialLoginRequest{
		Provider:       profile.Provider,
		ProviderUserID: profile.ProviderUserID,
		Email:          profile.Email,
		Name:           profile.Name,
	}
	if token != nil {
		reqBody.AccessToken = token.AccessToken
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode exchange request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+e.path, bytes.NewReader(payload))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build exchange request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "exchange request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read exchange response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		clone := ErrBridgeExchangeFailed.Clone()
		return nil, clone.WithMetadata(map[string]any{"status": resp.StatusCode})
	}

	var loginResp socialLoginResponse
	if err := json.Unmarshal(body, &loginResp); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode exchange response")
	}

	if loginResp.Token == "" {
		clone := ErrBridgeExchangeFailed.Clone()
		return nil, clone.WithMetadata(map[string]any{"cause": "missing token"})
	}

	identity := loginResp.Email
	if identity == "" {
		identity = profile.Email
	}

	return &session.BackendAuthResult{
		Identity:     identity,
		BackendToken: loginResp.Token,
		DisplayName:  loginResp.Name,
	}, nil
}
