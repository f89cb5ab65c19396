package session_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	session "github.com/warebase/go-session"
)

func newTestCodec(key []byte) *session.HMACCodec {
	return session.NewHMACCodec(key, 72, "test-issuer", jwt.ClaimStrings{"test-audience"}, nil)
}

func newTestClaims(subject string) *session.SessionClaims {
	return &session.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: subject,
		},
		Version:      session.ClaimsVersion,
		BackendToken: "backend-token",
	}
}

func TestHMACCodec_Encode(t *testing.T) {
	signingKey := []byte("test-signing-key")
	codec := newTestCodec(signingKey)

	t.Run("signs claims and fills defaults", func(t *testing.T) {
		claims := newTestClaims("user@example.com")

		tokenString, err := codec.Encode(claims)

		require.NoError(t, err)
		assert.NotEmpty(t, tokenString)

		token, err := jwt.ParseWithClaims(tokenString, &session.SessionClaims{}, func(token *jwt.Token) (any, error) {
			return signingKey, nil
		})
		require.NoError(t, err)
		assert.True(t, token.Valid)

		parsed, ok := token.Claims.(*session.SessionClaims)
		require.True(t, ok)
		assert.Equal(t, "user@example.com", parsed.Email())
		assert.Equal(t, "backend-token", parsed.BackendToken)
		assert.Equal(t, "test-issuer", parsed.Issuer)
		assert.Equal(t, jwt.ClaimStrings{"test-audience"}, parsed.Audience)
		assert.Equal(t, session.ClaimsVersion, parsed.Version)
		assert.NotEmpty(t, parsed.ID)
		assert.NotNil(t, parsed.IssuedAt)
		assert.NotNil(t, parsed.ExpiresAt)
	})

	t.Run("sets expiration from token duration", func(t *testing.T) {
		before := time.Now()
		tokenString, err := codec.Encode(newTestClaims("user@example.com"))
		after := time.Now()

		require.NoError(t, err)

		claims, err := codec.Decode(tokenString)
		require.NoError(t, err)

		expected := before.Add(72 * time.Hour)
		assert.True(t, claims.Expires().After(expected.Add(-time.Second)))
		assert.True(t, claims.Expires().Before(after.Add(72*time.Hour+time.Second)))
	})

	t.Run("rejects nil claims", func(t *testing.T) {
		tokenString, err := codec.Encode(nil)

		assert.Empty(t, tokenString)
		assert.ErrorIs(t, err, session.ErrEmptyClaims)
	})

	t.Run("rejects claims without a subject", func(t *testing.T) {
		tokenString, err := codec.Encode(&session.SessionClaims{})

		assert.Empty(t, tokenString)
		assert.ErrorIs(t, err, session.ErrEmptyClaims)
	})
}

func TestHMACCodec_Decode(t *testing.T) {
	signingKey := []byte("test-signing-key")
	codec := newTestCodec(signingKey)

	t.Run("round-trips claims", func(t *testing.T) {
		original := newTestClaims("user@example.com")
		original.TenantID = 42
		original.Name = "Test User"

		tokenString, err := codec.Encode(original)
		require.NoError(t, err)

		claims, err := codec.Decode(tokenString)

		require.NoError(t, err)
		assert.Equal(t, "user@example.com", claims.Email())
		assert.Equal(t, "backend-token", claims.BackendToken)
		assert.Equal(t, int64(42), claims.TenantID)
		assert.Equal(t, "Test User", claims.Name)
	})

	t.Run("rejects token signed with a different key", func(t *testing.T) {
		other := newTestCodec([]byte("other-signing-key"))
		tokenString, err := other.Encode(newTestClaims("user@example.com"))
		require.NoError(t, err)

		claims, err := codec.Decode(tokenString)

		assert.Nil(t, claims)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "session token invalid")
		assert.False(t, session.IsTokenExpiredError(err))
	})

	t.Run("rejects expired token", func(t *testing.T) {
		past := func() time.Time { return time.Now().Add(-100 * time.Hour) }
		stale := newTestCodec(signingKey).WithClock(past)

		tokenString, err := stale.Encode(newTestClaims("user@example.com"))
		require.NoError(t, err)

		claims, err := codec.Decode(tokenString)

		assert.Nil(t, claims)
		assert.ErrorIs(t, err, session.ErrTokenExpired)
	})

	t.Run("expiry wins over a bad signature", func(t *testing.T) {
		past := func() time.Time { return time.Now().Add(-100 * time.Hour) }
		staleWrongKey := newTestCodec([]byte("other-signing-key")).WithClock(past)

		tokenString, err := staleWrongKey.Encode(newTestClaims("user@example.com"))
		require.NoError(t, err)

		claims, err := codec.Decode(tokenString)

		assert.Nil(t, claims)
		assert.ErrorIs(t, err, session.ErrTokenExpired)
	})

	t.Run("rejects a token truncated by one character", func(t *testing.T) {
		tokenString, err := codec.Encode(newTestClaims("user@example.com"))
		require.NoError(t, err)

		claims, err := codec.Decode(tokenString[:len(tokenString)-1])

		assert.Nil(t, claims)
		require.Error(t, err)
		assert.False(t, session.IsTokenExpiredError(err))
	})

	t.Run("rejects a token from a previous claims version", func(t *testing.T) {
		stale := newTestClaims("user@example.com")
		stale.Version = session.ClaimsVersion + 1
		stale.Issuer = "test-issuer"
		stale.Audience = jwt.ClaimStrings{"test-audience"}
		stale.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))

		token := jwt.NewWithClaims(jwt.SigningMethodHS256, stale)
		tokenString, err := token.SignedString(signingKey)
		require.NoError(t, err)

		claims, err := codec.Decode(tokenString)

		assert.Nil(t, claims)
		assert.ErrorIs(t, err, session.ErrTokenInvalid)
	})

	t.Run("stamps the claims version on encode", func(t *testing.T) {
		unversioned := &session.SessionClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "user@example.com"},
		}

		tokenString, err := codec.Encode(unversioned)
		require.NoError(t, err)

		claims, err := codec.Decode(tokenString)
		require.NoError(t, err)
		assert.Equal(t, session.ClaimsVersion, claims.Version)
	})

	t.Run("rejects malformed token", func(t *testing.T) {
		claims, err := codec.Decode("not.a.valid.jwt.token")

		assert.Nil(t, claims)
		assert.Error(t, err)
		assert.True(t, session.IsMalformedError(err))
	})

	t.Run("rejects token with wrong issuer", func(t *testing.T) {
		other := session.NewHMACCodec(signingKey, 72, "other-issuer", jwt.ClaimStrings{"test-audience"}, nil)
		tokenString, err := other.Encode(newTestClaims("user@example.com"))
		require.NoError(t, err)

		claims, err := codec.Decode(tokenString)

		assert.Nil(t, claims)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "session token invalid")
	})

	t.Run("rejects token signed with an unexpected method", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, newTestClaims("user@example.com"))
		tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		claims, err := codec.Decode(tokenString)

		assert.Nil(t, claims)
		assert.Error(t, err)
	})
}
