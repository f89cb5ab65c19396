package jwtware_test

import (
	"errors"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warebase/go-session/middleware/jwtware"
)

// routerBase aliases the embedded interface so the field name does not
// collide with the Context() method.
type routerBase = router.Context

// stubContext implements the few router.Context methods the middleware
// touches. The embedded interface panics on anything unstubbed, which is
// exactly what we want in a test.
type stubContext struct {
	routerBase
	cookies    map[string]string
	headers    map[string]string
	query      map[string]string
	params     map[string]string
	locals     map[any]any
	nextCalled bool
}

func newStubContext() *stubContext {
	return &stubContext{
		cookies: map[string]string{},
		headers: map[string]string{},
		query:   map[string]string{},
		params:  map[string]string{},
		locals:  map[any]any{},
	}
}

func (s *stubContext) Cookies(key string, defaultValue ...string) string {
	if v, ok := s.cookies[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (s *stubContext) GetString(key string, defaultValue string) string {
	if v, ok := s.headers[key]; ok {
		return v
	}
	return defaultValue
}

func (s *stubContext) Query(key string, defaultValue ...string) string {
	if v, ok := s.query[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (s *stubContext) Param(key string, defaultValue ...string) string {
	if v, ok := s.params[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (s *stubContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		s.locals[key] = value[0]
		return value[0]
	}
	return s.locals[key]
}

func (s *stubContext) Next() error {
	s.nextCalled = true
	return nil
}

// stubClaims implements jwtware.SessionClaims
type stubClaims struct {
	subject      string
	backendToken string
	tenantID     int64
}

func (s stubClaims) Subject() string      { return s.subject }
func (s stubClaims) BackendToken() string { return s.backendToken }
func (s stubClaims) TenantID() int64      { return s.tenantID }

// stubValidator implements jwtware.TokenValidator
type stubValidator struct {
	claims jwtware.SessionClaims
	err    error
	seen   string
}

func (s *stubValidator) Validate(tokenString string) (jwtware.SessionClaims, error) {
	s.seen = tokenString
	return s.claims, s.err
}

func TestGetExtractors(t *testing.T) {
	t.Run("parses a multi-source lookup", func(t *testing.T) {
		extractors := jwtware.GetExtractors("cookie:portal_session,header:Authorization,query:auth_token,param:token")
		assert.Len(t, extractors, 4)
	})

	t.Run("tolerates whitespace", func(t *testing.T) {
		extractors := jwtware.GetExtractors(" cookie: portal_session , header: Authorization ")
		assert.Len(t, extractors, 2)

		ctx := newStubContext()
		ctx.cookies["portal_session"] = "cookie-token"

		raw, err := jwtware.ExtractRawTokenFromContext(ctx, extractors)
		require.NoError(t, err)
		assert.Equal(t, "cookie-token", raw)
	})

	t.Run("unknown sources are skipped", func(t *testing.T) {
		extractors := jwtware.GetExtractors("bogus:thing,cookie:portal_session")
		assert.Len(t, extractors, 1)
	})
}

func TestExtractRawTokenFromContext(t *testing.T) {
	lookup := "cookie:portal_session,header:Authorization"

	t.Run("cookie wins when present", func(t *testing.T) {
		ctx := newStubContext()
		ctx.cookies["portal_session"] = "cookie-token"
		ctx.headers["Authorization"] = "Bearer header-token"

		raw, err := jwtware.ExtractRawTokenFromContext(ctx, jwtware.GetExtractors(lookup))

		require.NoError(t, err)
		assert.Equal(t, "cookie-token", raw)
	})

	t.Run("falls through to the auth header", func(t *testing.T) {
		ctx := newStubContext()
		ctx.headers["Authorization"] = "Bearer header-token"

		raw, err := jwtware.ExtractRawTokenFromContext(ctx, jwtware.GetExtractors(lookup))

		require.NoError(t, err)
		assert.Equal(t, "header-token", raw)
	})

	t.Run("header scheme must match", func(t *testing.T) {
		ctx := newStubContext()
		ctx.headers["Authorization"] = "Basic dXNlcjpwYXNz"

		raw, err := jwtware.ExtractRawTokenFromContext(ctx, jwtware.GetExtractors(lookup))

		assert.Empty(t, raw)
		assert.ErrorIs(t, err, jwtware.ErrJWTMissingOrMalformed)
	})

	t.Run("query and param sources", func(t *testing.T) {
		ctx := newStubContext()
		ctx.query["auth_token"] = "query-token"

		raw, err := jwtware.ExtractRawTokenFromContext(ctx, jwtware.GetExtractors("query:auth_token"))
		require.NoError(t, err)
		assert.Equal(t, "query-token", raw)

		ctx.params["token"] = "param-token"

		raw, err = jwtware.ExtractRawTokenFromContext(ctx, jwtware.GetExtractors("param:token"))
		require.NoError(t, err)
		assert.Equal(t, "param-token", raw)
	})

	t.Run("nothing to extract", func(t *testing.T) {
		ctx := newStubContext()

		raw, err := jwtware.ExtractRawTokenFromContext(ctx, jwtware.GetExtractors(lookup))

		assert.Empty(t, raw)
		assert.ErrorIs(t, err, jwtware.ErrJWTMissingOrMalformed)
	})
}

func TestNew(t *testing.T) {
	baseConfig := func(validator jwtware.TokenValidator) jwtware.Config {
		return jwtware.Config{
			SigningKey:     jwtware.SigningKey{Key: []byte("test-signing-key"), JWTAlg: "HS256"},
			TokenValidator: validator,
			TokenLookup:    "cookie:portal_session",
			ContextKey:     "session",
		}
	}

	t.Run("valid token reaches the handler with claims in locals", func(t *testing.T) {
		claims := stubClaims{subject: "user@example.com", backendToken: "backend-token", tenantID: 42}
		validator := &stubValidator{claims: claims}

		handler := jwtware.New(baseConfig(validator))

		ctx := newStubContext()
		ctx.cookies["portal_session"] = "valid.jwt.token"

		err := handler(ctx)

		require.NoError(t, err)
		assert.True(t, ctx.nextCalled)
		assert.Equal(t, "valid.jwt.token", validator.seen)

		stored, ok := ctx.locals["session"].(jwtware.SessionClaims)
		require.True(t, ok, "claims should be stored under the context key")
		assert.Equal(t, "user@example.com", stored.Subject())
		assert.Equal(t, int64(42), stored.TenantID())
	})

	t.Run("missing token goes to the error handler", func(t *testing.T) {
		var handled error
		cfg := baseConfig(&stubValidator{})
		cfg.ErrorHandler = func(c router.Context, err error) error {
			handled = err
			return nil
		}

		handler := jwtware.New(cfg)

		err := handler(newStubContext())

		require.NoError(t, err)
		assert.ErrorIs(t, handled, jwtware.ErrJWTMissingOrMalformed)
	})

	t.Run("rejected token goes to the error handler", func(t *testing.T) {
		var handled error
		rejection := errors.New("signature mismatch")
		cfg := baseConfig(&stubValidator{err: rejection})
		cfg.ErrorHandler = func(c router.Context, err error) error {
			handled = err
			return nil
		}

		handler := jwtware.New(cfg)

		ctx := newStubContext()
		ctx.cookies["portal_session"] = "tampered.jwt.token"

		err := handler(ctx)

		require.NoError(t, err)
		assert.ErrorIs(t, handled, rejection)
		assert.False(t, ctx.nextCalled)
	})

	t.Run("filter bypasses validation", func(t *testing.T) {
		validator := &stubValidator{}
		cfg := baseConfig(validator)
		cfg.Filter = func(router.Context) bool { return true }

		handler := jwtware.New(cfg)

		ctx := newStubContext()

		err := handler(ctx)

		require.NoError(t, err)
		assert.True(t, ctx.nextCalled)
		assert.Empty(t, validator.seen)
	})

	t.Run("validation listener failure stops the request", func(t *testing.T) {
		var handled error
		listenerErr := errors.New("listener rejected")
		cfg := baseConfig(&stubValidator{claims: stubClaims{subject: "user@example.com"}})
		cfg.ErrorHandler = func(c router.Context, err error) error {
			handled = err
			return nil
		}
		cfg.ValidationListeners = []jwtware.ValidationListener{
			func(ctx router.Context, claims jwtware.SessionClaims) error {
				return listenerErr
			},
		}

		handler := jwtware.New(cfg)

		ctx := newStubContext()
		ctx.cookies["portal_session"] = "valid.jwt.token"

		err := handler(ctx)

		require.NoError(t, err)
		assert.ErrorIs(t, handled, listenerErr)
		assert.False(t, ctx.nextCalled)
	})
}

func TestGetDefaultConfig(t *testing.T) {
	t.Run("requires a token validator", func(t *testing.T) {
		assert.Panics(t, func() {
			jwtware.GetDefaultConfig(jwtware.Config{
				SigningKey: jwtware.SigningKey{Key: []byte("key")},
			})
		})
	})

	t.Run("requires key material", func(t *testing.T) {
		assert.Panics(t, func() {
			jwtware.GetDefaultConfig(jwtware.Config{
				TokenValidator: &stubValidator{},
			})
		})
	})

	t.Run("fills defaults", func(t *testing.T) {
		cfg := jwtware.GetDefaultConfig(jwtware.Config{
			SigningKey:     jwtware.SigningKey{Key: []byte("key"), JWTAlg: "HS256"},
			TokenValidator: &stubValidator{},
		})

		assert.Equal(t, "session", cfg.ContextKey)
		assert.Equal(t, "Bearer", cfg.AuthScheme)
		assert.NotEmpty(t, cfg.TokenLookup)
		assert.NotNil(t, cfg.SuccessHandler)
		assert.NotNil(t, cfg.ErrorHandler)
		assert.NotNil(t, cfg.KeyFunc)
	})
}
