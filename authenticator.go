package session

import (
	"context"
	"fmt"
)

// Auther wires the credential verifier, assembler, and token codec into the
// login pipeline: verify against the backend, assemble claims, sign.
type Auther struct {
	verifier  CredentialVerifier
	assembler *Assembler
	codec     TokenCodec
	logger    Logger
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator built from cfg. The session
// codec and the backend token verifier take separate keys so the two trust
// domains can rotate independently.
func NewAuthenticator(cfg Config) *Auther {
	logger := Logger(defLogger{})

	codec := NewHMACCodec(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		logger,
	)

	backendVerifier := backendVerifierFromConfig(cfg, logger)

	return &Auther{
		verifier: NewBackendVerifier(cfg.GetBackendBaseURL(), logger),
		assembler: NewAssembler(
			backendVerifier,
			cfg.GetTokenExpiration(),
			cfg.GetIssuer(),
			cfg.GetAudience(),
			logger,
		),
		codec:  codec,
		logger: logger,
	}
}

// backendVerifierFromConfig picks the backend trust domain: the JWK Set when
// a URL is configured, the shared HMAC secret otherwise. An unreachable JWKS
// is a deployment problem, not something to silently downgrade from.
func backendVerifierFromConfig(cfg Config, logger Logger) BackendTokenVerifier {
	if jwksURL := cfg.GetBackendJWKSURL(); jwksURL != "" {
		verifier, err := NewJWKSBackendVerifier(jwksURL, logger)
		if err != nil {
			panic(fmt.Sprintf("session: backend JWK Set unavailable: %s", err))
		}
		return verifier
	}
	return NewHMACBackendVerifier([]byte(cfg.GetBackendTokenKey()), logger)
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithVerifier replaces the credential verifier, e.g. with the social bridge
// exchanger or a test stub.
func (s *Auther) WithVerifier(verifier CredentialVerifier) *Auther {
	if verifier != nil {
		s.verifier = verifier
	}
	return s
}

// WithAssembler replaces the claims assembler.
func (s *Auther) WithAssembler(assembler *Assembler) *Auther {
	if assembler != nil {
		s.assembler = assembler
	}
	return s
}

// WithCodec replaces the token codec.
func (s *Auther) WithCodec(codec TokenCodec) *Auther {
	if codec != nil {
		s.codec = codec
	}
	return s
}

// Codec returns the TokenCodec instance used by this Authenticator
func (s *Auther) Codec() TokenCodec {
	return s.codec
}

// Login verifies credentials against the backend and returns a signed
// session token. Nothing is persisted here; the HTTP layer decides whether
// and where the token lives.
func (s *Auther) Login(ctx context.Context, email, password string) (string, error) {
	result, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		s.logger.Error("Login credential verification error: %s", err)
		return "", err
	}

	return s.IssueSession(result)
}

// IssueSession assembles and signs a session token from an already verified
// backend result. The social bridge calls this after a provider exchange.
func (s *Auther) IssueSession(result *BackendAuthResult) (string, error) {
	claims, err := s.assembler.Assemble(result)
	if err != nil {
		s.logger.Error("IssueSession assemble error: %s", err)
		return "", err
	}

	token, err := s.codec.Encode(claims)
	if err != nil {
		s.logger.Error("IssueSession encode error: %s", err)
		return "", err
	}

	return token, nil
}

// SessionFromToken re-derives a Session from a raw token string. Every call
// re-verifies the signature; there is no session cache to invalidate.
func (s *Auther) SessionFromToken(raw string) (*Session, error) {
	claims, err := s.codec.Decode(raw)
	if err != nil {
		return nil, err
	}

	return ProjectSession(claims), nil
}
