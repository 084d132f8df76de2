package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"worshipScheduling/models"
)

// Principal represents the authenticated caller from JWT.
type Principal struct {
	UserID   int64
	Username string
	Name     string
	Role     models.Role
}

// IsAdmin reports whether the token claims the admin role. Admin-only routes re-check the DB.
func (p *Principal) IsAdmin() bool { return p != nil && p.Role == models.RoleAdmin }

type principalKey struct{}

// WithPrincipal stores the principal in context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext retrieves the principal from context (if any).
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok
}

// Claims is the token payload.
type Claims struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs HS256 tokens with a fixed lifetime.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for u and its expiry. Every token gets a fresh ULID as jti.
func (i *Issuer) Issue(u *models.User) (string, time.Time, error) {
	if len(i.secret) == 0 {
		return "", time.Time{}, errors.New("jwt secret is empty")
	}
	now := i.now()
	exp := now.Add(i.ttl)
	claims := Claims{
		UserID:   u.ID,
		Username: u.Username,
		Name:     u.Name,
		Role:     string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

// ParseBearer extracts and validates a Bearer JWT from an Authorization header value.
func ParseBearer(header, secret string) (*Principal, error) {
	if header == "" {
		return nil, errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, errors.New("invalid authorization header")
	}
	return ParseToken(strings.TrimSpace(parts[1]), secret)
}

// ParseToken validates signature and expiry and returns the principal the token carries.
func ParseToken(tokenStr string, secret string) (*Principal, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}

	tok, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return nil, err
	}
	c, _ := tok.Claims.(*Claims)
	if c == nil || c.UserID == 0 || c.Username == "" {
		return nil, errors.New("invalid claims")
	}
	role := models.Role(strings.ToLower(c.Role))
	if !role.Valid() {
		return nil, errors.New("invalid role claim")
	}
	return &Principal{UserID: c.UserID, Username: c.Username, Name: c.Name, Role: role}, nil
}
