package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// HMACCodec signs and verifies session tokens with a process-wide HS256
// secret. Every process serving the portal shares the same key, so a cookie
// minted by one instance verifies on any other.
type HMACCodec struct {
	signingKey      []byte
	tokenExpiration int
	issuer          string
	audience        jwt.ClaimStrings
	logger          Logger
	now             Clock
}

var _ TokenCodec = (*HMACCodec)(nil)

// NewHMACCodec creates a TokenCodec instance. tokenExpiration is in hours.
func NewHMACCodec(signingKey []byte, tokenExpiration int, issuer string, audience jwt.ClaimStrings, logger Logger) *HMACCodec {
	if logger == nil {
		logger = defLogger{}
	}
	return &HMACCodec{
		signingKey:      signingKey,
		tokenExpiration: tokenExpiration,
		issuer:          issuer,
		audience:        audience,
		logger:          logger,
		now:             time.Now,
	}
}

// WithClock overrides the codec's time source. Tests use it to mint tokens
// in the past.
func (c *HMACCodec) WithClock(now Clock) *HMACCodec {
	if now != nil {
		c.now = now
	}
	return c
}

// Encode signs the given claims, filling in issuer, audience, timestamps,
// and a token ID when absent. Claims without a subject are rejected: a
// session token that identifies nobody is never useful and usually a bug
// upstream.
func (c *HMACCodec) Encode(claims *SessionClaims) (string, error) {
	if claims == nil || claims.RegisteredClaims.Subject == "" {
		return "", ErrEmptyClaims
	}

	now := c.now()
	if claims.Version == 0 {
		claims.Version = ClaimsVersion
	}
	if claims.RegisteredClaims.Issuer == "" {
		claims.RegisteredClaims.Issuer = c.issuer
	}
	if len(claims.RegisteredClaims.Audience) == 0 {
		claims.RegisteredClaims.Audience = c.audience
	}
	if claims.RegisteredClaims.IssuedAt == nil {
		claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.RegisteredClaims.ExpiresAt == nil {
		claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(time.Duration(c.tokenExpiration) * time.Hour))
	}
	ensureTokenID(&claims.RegisteredClaims)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign session token")
	}

	return signedString, nil
}

// Decode parses and verifies a token string, returning structured claims.
// Expiry dominates: a token that is both tampered and expired reports
// ErrTokenExpired, so stale cookies never read as attacks.
func (c *HMACCodec) Decode(tokenString string) (*SessionClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if c.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(c.issuer))
	}
	if len(c.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(c.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			c.logger.Error("TokenCodec decode encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		// jwt/v5 checks the signature before the expiry claim, but the
		// parsed claims are populated even on signature failure. Report
		// expiry first regardless of which check tripped.
		if token != nil {
			if claims, ok := token.Claims.(*SessionClaims); ok {
				if exp := claims.Expires(); !exp.IsZero() && exp.Before(c.now()) {
					return nil, ErrTokenExpired
				}
			}
		}
		return nil, errors.Wrap(err, ErrTokenInvalid.Category, ErrTokenInvalid.Message).WithTextCode(ErrTokenInvalid.TextCode)
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		// Bumping ClaimsVersion invalidates every outstanding cookie without
		// rotating the signing key.
		if claims.Version != ClaimsVersion {
			c.logger.Warn("TokenCodec decode rejected claims version %d", claims.Version)
			return nil, ErrTokenInvalid
		}
		return claims, nil
	}

	c.logger.Error("TokenCodec decode could not map claims")
	return nil, ErrTokenInvalid
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
