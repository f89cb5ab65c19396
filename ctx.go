package session

import (
	"context"

	"github.com/goliatone/go-router"
)

var sessionCtxKey = &contextKey{"session"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithContext sets the Session in the given context
func WithContext(r context.Context, session *Session) context.Context {
	return context.WithValue(r, sessionCtxKey, session)
}

// FromContext finds the session from the context.
func FromContext(ctx context.Context) (*Session, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(*Session)
	return raw, ok
}

// WithClaimsContext sets the SessionClaims in the given context
func WithClaimsContext(r context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the SessionClaims from the standard context
func GetClaims(ctx context.Context) (*SessionClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*SessionClaims)
	return raw, ok
}

// GetRouterSession extracts the Session that the middleware stored in the
// router context under key.
func GetRouterSession(ctx router.Context, key string) (*Session, error) {
	if key == "" {
		key = "session"
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, ErrUnableToFindSession
	}

	switch v := raw.(type) {
	case *Session:
		return v, nil
	case *SessionClaims:
		return ProjectSession(v), nil
	case sessionClaimsAdapter:
		return v.session, nil
	}

	return nil, ErrUnableToFindSession
}

// BackendTokenFromContext returns the backend token of the current session,
// empty when anonymous. Convenience for handlers making data calls.
func BackendTokenFromContext(ctx context.Context) string {
	if session, ok := FromContext(ctx); ok && session != nil {
		return session.User.BackendToken
	}
	if claims, ok := GetClaims(ctx); ok && claims != nil {
		return claims.BackendToken
	}
	return ""
}
