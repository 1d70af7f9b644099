package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/civicgrid/resident-portal/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Tokens are minted by the identity service with a shared HS256 secret.
var signingMethod = jwt.SigningMethodHS256

const clockSkew = 30 * time.Second

var (
	ErrMissingSecret  = errors.New("jwt secret is required")
	ErrMissingSubject = errors.New("token missing user id")
	ErrUnknownRole    = errors.New("token carries unknown role")
)

// Verifier checks access tokens against one issuer and secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(cfg config.JWTConfig) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	return &Verifier{
		secret: []byte(cfg.Secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signingMethod.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}, nil
}

// Verify returns the claims of a valid token. Signature, issuer and expiry
// failures surface jwt's sentinel errors (jwt.ErrTokenExpired and friends).
func (v *Verifier) Verify(raw string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if _, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}); err != nil {
		return nil, err
	}
	if claims.UserID == uuid.Nil {
		return nil, ErrMissingSubject
	}
	if !claims.Role.IsValid() {
		return nil, fmt.Errorf("%w %q", ErrUnknownRole, claims.Role)
	}
	return claims, nil
}

// ParseAccessToken is a one-shot Verify for callers without a Verifier.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	v, err := NewVerifier(cfg)
	if err != nil {
		return nil, err
	}
	return v.Verify(raw)
}
