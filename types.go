package session

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-router"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// BackendAuthResult is what the inventory API returns from a successful
// login, regardless of whether the credentials came from a form or from an
// OAuth provider exchange.
type BackendAuthResult struct {
	// Identity is the verified identifier, typically the email.
	Identity string
	// BackendToken is the API-issued signed token. It is opaque to this
	// layer except for the tenant claim, and is re-sent to the API on every
	// authenticated call.
	BackendToken string
	// DisplayName is optional and may be empty.
	DisplayName string
}

// CredentialVerifier exchanges user credentials for a backend-issued result.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (*BackendAuthResult, error)
}

// TokenCodec owns signing and verification of the session token.
type TokenCodec interface {
	Encode(claims *SessionClaims) (string, error)
	Decode(token string) (*SessionClaims, error)
}

// BackendTokenVerifier verifies tokens issued by the inventory API. It is a
// distinct trust domain from the session cookie: the two authorities must be
// able to rotate keys independently.
type BackendTokenVerifier interface {
	TenantClaim(token string) (int64, error)
}

// Authenticator holds methods to deal with authentication.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
	SessionFromToken(token string) (*Session, error)
}

type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
	GetExtendedSession() bool
}

type HTTPAuthenticator interface {
	Middleware
	Login(c router.Context, payload LoginPayload) error
	Logout(c router.Context)
	PersistToken(c router.Context, token string)
	CurrentSession(c router.Context) *Session
	SetRedirect(c router.Context)
	GetRedirect(c router.Context, def ...string) string
	GetRedirectOrDefault(c router.Context) string
	MakeClientRouteAuthErrorHandler(optionalAuth bool) func(c router.Context, err error) error
}

// Config holds session options.
type Config interface {
	GetSigningKey() string
	GetBackendTokenKey() string
	// GetBackendJWKSURL, when non-empty, switches backend token verification
	// from the shared HMAC secret to the backend's published JWK Set.
	GetBackendJWKSURL() string
	GetSigningMethod() string
	GetCookieName() string
	GetContextKey() string
	GetTokenExpiration() int
	GetExtendedTokenDuration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	GetEnvironment() string
	GetBackendBaseURL() string
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
}

// EnvDevelopment relaxes cookie transport flags. Anything else is treated as
// a deployed environment and requires Secure + SameSite=Strict.
const EnvDevelopment = "development"

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

// Clock is injectable for tests that need to control expiry.
type Clock func() time.Time
