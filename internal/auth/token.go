package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/ledger-gateway/internal/domain"
)

var (
	// ErrMalformedToken means the token could not be parsed into a claim set.
	ErrMalformedToken = errors.New("malformed token")
	// ErrSignatureInvalid means the MAC did not verify under the configured key.
	ErrSignatureInvalid = errors.New("token signature invalid")
)

// Claims is the decoded, verified content of a bearer token.
type Claims struct {
	Subject   string
	Role      domain.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS256 bearer tokens.
// It holds the only reference to the signing key.
type TokenCodec struct {
	secret          []byte
	lifetimeMinutes int
}

// NewTokenCodec builds a codec around an injected secret.
func NewTokenCodec(secret []byte, lifetimeMinutes int) *TokenCodec {
	if lifetimeMinutes <= 0 {
		lifetimeMinutes = 60
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &TokenCodec{secret: key, lifetimeMinutes: lifetimeMinutes}
}

// LifetimeMinutes returns the configured lifetime in minutes.
func (tc *TokenCodec) LifetimeMinutes() int {
	return tc.lifetimeMinutes
}

// Issue signs a token for subject. Expiry is issuedAt plus the configured lifetime.
func (tc *TokenCodec) Issue(subject string, role domain.Role, issuedAt time.Time) (string, error) {
	if subject == "" {
		return "", errors.New("token subject required")
	}
	if !role.Known() {
		return "", errors.New("cannot issue token for unknown role")
	}

	lifetime := time.Duration(tc.lifetimeMinutes*60000) * time.Millisecond
	claims := &tokenClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tc.secret)
}

// Decode verifies the signature and returns the claim set. Expiry is not checked
// here; see IsExpired.
func (tc *TokenCodec) Decode(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tc.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, ErrSignatureInvalid
		default:
			return nil, ErrMalformedToken
		}
	}

	raw, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformedToken
	}
	if raw.Subject == "" || raw.IssuedAt == nil || raw.ExpiresAt == nil {
		return nil, ErrMalformedToken
	}

	return &Claims{
		Subject:   raw.Subject,
		Role:      domain.ParseRole(raw.Role),
		IssuedAt:  raw.IssuedAt.Time,
		ExpiresAt: raw.ExpiresAt.Time,
	}, nil
}

// IsExpired reports whether claims are past expiry at now.
func (tc *TokenCodec) IsExpired(claims *Claims, now time.Time) bool {
	return now.After(claims.ExpiresAt)
}
