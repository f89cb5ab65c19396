// Package session implements the browser-facing authentication layer of the
// Warebase inventory portal: credential exchange with the inventory API,
// session token issuance, and cookie propagation.
//
// Flow:
//   - A BackendVerifier exchanges email/password for a BackendAuthResult by
//     calling the inventory API's login endpoint. The API issues its own
//     signed token (the backend token) which this layer treats as opaque
//     except for the tenant claim.
//   - The Assembler folds the BackendAuthResult into SessionClaims, asking a
//     BackendTokenVerifier (a separate trust domain with its own key) for the
//     companyID tenant claim. A failed tenant decode is logged, never fatal.
//   - A TokenCodec signs SessionClaims into the session token (HS256, shared
//     process secret) and re-verifies it on every request. The Session handed
//     to views is always a pure projection of freshly verified claims; it is
//     never cached or mutated independently.
//   - RouteAuthenticator persists the token as an HTTP-only cookie and gates
//     protected routes, normalizing every codec failure to "no session".
//
// The social subpackage bridges Google and GitHub logins into the same
// BackendAuthResult shape so the rest of the pipeline stays provider
// agnostic. The apiclient subpackage re-sends the session's backend token as
// a bearer credential on portal data calls.
package session
