package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the projection handed to request handlers and views. It is
// derived from freshly verified claims on every request and holds nothing
// the claims do not hold; in particular there is no field a credential
// could travel in.
type Session struct {
	User      SessionUser `json:"user"`
	IssuedAt  *time.Time  `json:"issued_at,omitempty"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
}

type SessionUser struct {
	Email        string `json:"email"`
	BackendToken string `json:"token"`
	TenantID     int64  `json:"tenant_id,omitempty"`
	Name         string `json:"name,omitempty"`
}

// Assembler folds a verified backend result into session claims. The tenant
// claim comes from the backend token via a verifier in the backend's trust
// domain; when that verification fails the session is still assembled, just
// without a tenant.
type Assembler struct {
	issuer          string
	audience        jwt.ClaimStrings
	tokenExpiration int
	backendVerifier BackendTokenVerifier
	logger          Logger
	now             Clock
}

// NewAssembler creates an Assembler. tokenExpiration is in hours.
func NewAssembler(backendVerifier BackendTokenVerifier, tokenExpiration int, issuer string, audience jwt.ClaimStrings, logger Logger) *Assembler {
	if logger == nil {
		logger = defLogger{}
	}
	return &Assembler{
		issuer:          issuer,
		audience:        audience,
		tokenExpiration: tokenExpiration,
		backendVerifier: backendVerifier,
		logger:          logger,
		now:             time.Now,
	}
}

// WithClock overrides the assembler's time source.
func (a *Assembler) WithClock(now Clock) *Assembler {
	if now != nil {
		a.now = now
	}
	return a
}

// Assemble builds SessionClaims from a backend auth result. Identity maps to
// the subject and the backend token rides along verbatim. A tenant decode
// failure is logged and tolerated: the session works, tenant-scoped views
// degrade.
func (a *Assembler) Assemble(result *BackendAuthResult) (*SessionClaims, error) {
	if result == nil || result.Identity == "" {
		return nil, ErrEmptyClaims
	}

	now := a.now()

	var aud jwt.ClaimStrings
	if len(a.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(a.audience))
		copy(aud, a.audience)
	}

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   result.Identity,
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(a.tokenExpiration) * time.Hour)),
		},
		Version:      ClaimsVersion,
		BackendToken: result.BackendToken,
		Name:         result.DisplayName,
	}

	ensureTokenID(&claims.RegisteredClaims)

	if a.backendVerifier != nil && result.BackendToken != "" {
		tenantID, err := a.backendVerifier.TenantClaim(result.BackendToken)
		if err != nil {
			a.logger.Warn("Assemble could not decode tenant claim: %s", err)
		} else {
			claims.TenantID = tenantID
		}
	}

	return claims, nil
}

// ProjectSession is the pure projection SessionClaims -> Session. It never
// fails on a decoded claim set and performs no I/O.
func ProjectSession(claims *SessionClaims) *Session {
	if claims == nil {
		return nil
	}

	session := &Session{
		User: SessionUser{
			Email:        claims.Email(),
			BackendToken: claims.BackendToken,
			TenantID:     claims.TenantID,
			Name:         claims.Name,
		},
	}

	if issued := claims.Issued(); !issued.IsZero() {
		session.IssuedAt = &issued
	}
	if expires := claims.Expires(); !expires.IsZero() {
		session.ExpiresAt = &expires
	}

	return session
}
