package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload of the portal session token. The subject is
// the verified email; the backend token rides along so data calls can be
// made on the user's behalf without another credential exchange.
type SessionClaims struct {
	jwt.RegisteredClaims
	// Version lets us invalidate every outstanding cookie by bumping a
	// constant instead of rotating the signing key.
	Version int `json:"ver"`
	// BackendToken is the inventory API's own signed token, carried verbatim.
	BackendToken string `json:"bkt,omitempty"`
	// TenantID is the companyID claim lifted from the backend token at
	// assembly time. Zero when the claim could not be decoded.
	TenantID int64 `json:"tid,omitempty"`
	// Name is the optional display name.
	Name string `json:"name,omitempty"`
}

// ClaimsVersion is stamped into every freshly assembled SessionClaims.
const ClaimsVersion = 1

// Email returns the subject claim.
func (c *SessionClaims) Email() string {
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// Issued returns the issued at time
func (c *SessionClaims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
