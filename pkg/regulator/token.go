package regulator

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/lifecycle"
)

// ErrTokenInvalid is returned for any token that fails verification or does
// not carry the REGULATOR role.
var ErrTokenInvalid = errors.New("regulator token invalid")

// Claims is the JWT payload of a regulator session.
type Claims struct {
	Role   string `json:"role"`
	Agency string `json:"agency,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies HS256 regulator session tokens.
type TokenIssuer struct {
	key   []byte
	ttl   time.Duration
	clock func() time.Time
}

// NewTokenIssuer builds an issuer. key is the shared HS256 secret.
func NewTokenIssuer(key []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{key: key, ttl: ttl, clock: time.Now}
}

// WithClock overrides the clock for testing.
func (i *TokenIssuer) WithClock(clock func() time.Time) *TokenIssuer {
	i.clock = clock
	return i
}

// Issue mints a token for a named regulator agency.
func (i *TokenIssuer) Issue(subject, agency string) (string, error) {
	now := i.clock().UTC()
	claims := Claims{
		Role:   string(lifecycle.RoleRegulator),
		Agency: agency,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign regulator token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, requiring HS256 and the REGULATOR
// role claim.
func (i *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return i.key, nil
		},
		jwt.WithTimeFunc(func() time.Time { return i.clock() }),
		jwt.WithValidMethods([]string{"HS256"}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid || claims.Role != string(lifecycle.RoleRegulator) {
		return nil, fmt.Errorf("%w: role %q", ErrTokenInvalid, claims.Role)
	}
	return claims, nil
}
