package session

import (
	stderrors "errors"
	"fmt"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// backendClaims mirrors the part of the inventory API's token we care about.
// The backend embeds the tenant as companyID; everything else stays opaque.
type backendClaims struct {
	jwt.RegisteredClaims
	CompanyID int64 `json:"companyID"`
}

// HMACBackendVerifier extracts the tenant claim from backend tokens signed
// with an HMAC secret. The key belongs to the backend's trust domain and is
// configured separately from the session signing key, even when operators
// deploy both with the same value.
type HMACBackendVerifier struct {
	key    []byte
	logger Logger
}

var _ BackendTokenVerifier = (*HMACBackendVerifier)(nil)

// NewHMACBackendVerifier creates a verifier for HMAC-signed backend tokens.
func NewHMACBackendVerifier(key []byte, logger Logger) *HMACBackendVerifier {
	if logger == nil {
		logger = defLogger{}
	}
	return &HMACBackendVerifier{key: key, logger: logger}
}

// TenantClaim verifies the backend token and returns its companyID claim.
func (v *HMACBackendVerifier) TenantClaim(tokenString string) (int64, error) {
	token, err := jwt.ParseWithClaims(tokenString, &backendClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.key, nil
	})
	if err != nil {
		return 0, normalizeTenantError(err)
	}
	return tenantFromToken(token)
}

// JWKSBackendVerifier extracts the tenant claim from backend tokens verified
// against the backend's published JWK Set. Used when the API moves off the
// shared-secret scheme.
type JWKSBackendVerifier struct {
	jwks   *keyfunc.JWKS
	logger Logger
}

var _ BackendTokenVerifier = (*JWKSBackendVerifier)(nil)

// NewJWKSBackendVerifier fetches the JWK Set at jwksURL and keeps it
// refreshed in the background.
func NewJWKSBackendVerifier(jwksURL string, logger Logger) (*JWKSBackendVerifier, error) {
	if logger == nil {
		logger = defLogger{}
	}
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			logger.Error("backend JWKS refresh failed: %s", err)
		},
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get backend JWK Set: %w", err)
	}
	return &JWKSBackendVerifier{jwks: jwks, logger: logger}, nil
}

// TenantClaim verifies the backend token and returns its companyID claim.
func (v *JWKSBackendVerifier) TenantClaim(tokenString string) (int64, error) {
	token, err := jwt.ParseWithClaims(tokenString, &backendClaims{}, v.jwks.Keyfunc)
	if err != nil {
		return 0, normalizeTenantError(err)
	}
	return tenantFromToken(token)
}

func tenantFromToken(token *jwt.Token) (int64, error) {
	claims, ok := token.Claims.(*backendClaims)
	if !ok || !token.Valid {
		return 0, ErrTenantClaimDecode
	}
	if claims.CompanyID == 0 {
		return 0, ErrTenantClaimDecode
	}
	return claims.CompanyID, nil
}

func normalizeTenantError(err error) error {
	clone := ErrTenantClaimDecode.Clone()
	clone.Source = err
	meta := map[string]any{"cause": err.Error()}
	if stderrors.Is(err, jwt.ErrTokenExpired) {
		meta["expired"] = true
	}
	return clone.WithMetadata(meta)
}
