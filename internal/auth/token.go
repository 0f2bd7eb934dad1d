// internal/auth/token.go
//
// Credential verification and access-token issuance.
//
// Context
// -------
// There is exactly one identity, the administrator, and exactly one role.
// Login compares the supplied password with the configured one and, on a
// match, returns an HS256 JWT carrying `role: admin` that expires after
// TokenTTL (24 h by default).
//
// Tokens are self-contained.  Nothing is stored server-side, so a token
// stays valid until it expires; rotating `auth.jwt_secret` is the only way
// to cut every outstanding token short.
//
// Notes
// -----
//   • No lockout and no rate limiting.  Put the service behind a proxy
//     that throttles /api/login if that matters for a deployment.
//   • The password check runs in constant time.  It is still an exact
//     string match.

package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/yanizio/inbox/internal/config"
)

// RoleAdmin is the only role the service knows.
const RoleAdmin = "admin"

var (
	// ErrInvalidCredentials is returned by Login on a password mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoToken means the request carried no Authorization header.
	ErrNoToken = errors.New("no token provided")
	// ErrInvalidToken covers bad signatures, malformed tokens, and expiry.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the JWT payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer checks the admin password, signs tokens, and verifies them.  It
// is safe for concurrent use.
type Issuer struct {
	password []byte
	secret   []byte
	ttl      time.Duration
	issuer   string
	now      func() time.Time
}

// Option customises an Issuer.
type Option func(*Issuer)

// WithClock replaces time.Now for both signing and verification.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer builds an Issuer from the auth section of the config.
func NewIssuer(c *config.Auth, opts ...Option) *Issuer {
	i := &Issuer{
		password: []byte(c.AdminPassword),
		secret:   []byte(c.JWTSecret),
		ttl:      c.TokenTTL,
		issuer:   c.Issuer,
		now:      time.Now,
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Login returns a signed token when password matches the configured one.
func (i *Issuer) Login(password string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(password), i.password) != 1 {
		return "", ErrInvalidCredentials
	}
	return i.Issue()
}

// Issue signs a fresh admin token.
func (i *Issuer) Issue() (string, error) {
	now := i.now().UTC()
	claims := Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   RoleAdmin,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer, and expiry.  Every failure
// is reported as ErrInvalidToken wrapping the parser's reason.
func (i *Issuer) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidToken)
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
