package session

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeAuthFailed       = "AUTHENTICATION_FAILED"
	TextCodeMalformedBackend = "MALFORMED_BACKEND_RESPONSE"
	TextCodeTokenExpired     = "TOKEN_EXPIRED"
	TextCodeTokenInvalid     = "TOKEN_INVALID"
	TextCodeEmptyClaims      = "EMPTY_CLAIMS"
	TextCodeTenantDecode     = "TENANT_CLAIM_DECODE"
	TextCodeSessionNotFound  = "SESSION_NOT_FOUND"
)

// ErrAuthenticationFailed is returned when the inventory API rejects the
// presented credentials. It deliberately carries no detail about which
// part of the credential pair was wrong.
var ErrAuthenticationFailed = errors.New("authentication failed", errors.CategoryAuth).
	WithTextCode(TextCodeAuthFailed).
	WithCode(errors.CodeUnauthorized)

// ErrMalformedBackendResponse is returned when the inventory API accepts the
// credentials but the response body cannot be used (missing token, bad JSON).
var ErrMalformedBackendResponse = errors.New("malformed backend response", errors.CategoryInternal).
	WithTextCode(TextCodeMalformedBackend).
	WithCode(errors.CodeInternal)

// ErrTokenExpired is returned for session tokens past their expiry. Expiry
// wins over signature problems so callers can distinguish "log in again"
// from "someone tampered with the cookie".
var ErrTokenExpired = errors.New("session token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenInvalid covers bad signatures, malformed tokens, and unexpected
// signing methods.
var ErrTokenInvalid = errors.New("session token invalid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrEmptyClaims is returned when Encode is handed nil or subject-less claims.
var ErrEmptyClaims = errors.New("claims must carry a subject", errors.CategoryBadInput).
	WithTextCode(TextCodeEmptyClaims).
	WithCode(errors.CodeBadRequest)

// ErrTenantClaimDecode is returned by backend token verifiers when the tenant
// claim cannot be extracted. The assembler logs it and continues.
var ErrTenantClaimDecode = errors.New("unable to decode tenant claim", errors.CategoryValidation).
	WithTextCode(TextCodeTenantDecode).
	WithCode(errors.CodeBadRequest)

// ErrUnableToFindSession is the error when the request has no session cookie.
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(errors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenInvalid) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
