package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for malformed, expired or forged tokens.
	ErrInvalidToken = errors.New("invalid token")

	ErrUnknownAccount  = errors.New("account not found")
	ErrInactiveAccount = errors.New("account is deactivated")
)

// Accounts resolves the current roles of a token subject. Implementations
// return ErrUnknownAccount or ErrInactiveAccount to refuse the caller.
type Accounts interface {
	Principal(ctx context.Context, employeeID string) (Principal, error)
}

// Principal is the authenticated caller.
type Principal struct {
	EmployeeID string `json:"employeeId"`
	Admin      bool   `json:"admin"`
	SuperAdmin bool   `json:"superAdmin"`
}

// IsAdmin reports whether the caller may use admin endpoints.
func (p Principal) IsAdmin() bool { return p.Admin || p.SuperAdmin }

type claims struct {
	Admin      bool `json:"adm,omitempty"`
	SuperAdmin bool `json:"sadm,omitempty"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 bearer tokens.
type Tokens struct {
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	accounts Accounts
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithAccounts makes Authenticate reload roles and the active flag
// on every request instead of trusting the token claims.
func (t *Tokens) WithAccounts(a Accounts) *Tokens {
	t.accounts = a
	return t
}

// Issue signs a token for p.
func (t *Tokens) Issue(p Principal) (string, error) {
	now := t.now()
	c := claims{
		Admin:      p.Admin,
		SuperAdmin: p.SuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.EmployeeID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return s, nil
}

// Parse verifies raw and returns its principal.
func (t *Tokens) Parse(raw string) (Principal, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return Principal{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return Principal{EmployeeID: c.Subject, Admin: c.Admin, SuperAdmin: c.SuperAdmin}, nil
}
