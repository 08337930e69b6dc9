package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/workplacebuddy/shurly/pkg/shurly/models"
)

// Claims carried by issued bearer tokens. Subject is the user ID, ID (jti)
// the user's session ID at issue time; a session rotation makes every older
// token fail verification downstream.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the parsed subject claim
func (c *Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed subject", models.ErrUnauthorized)
	}
	return id, nil
}

// SessionID returns the parsed jti claim
func (c *Claims) SessionID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed session id", models.ErrUnauthorized)
	}
	return id, nil
}

// Tokens signs and verifies bearer tokens with a process-scoped secret,
// established once at startup
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

// NewTokens creates a token codec for the given secret and validity duration
func NewTokens(secret []byte, ttl time.Duration) *Tokens {
	return &Tokens{secret: secret, ttl: ttl}
}

// TTL returns the validity duration of issued tokens
func (t *Tokens) TTL() time.Duration {
	return t.ttl
}

// Issue creates a signed token bound to the user's current session ID
func (t *Tokens) Issue(user models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ID:        user.SessionID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "shurly",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify checks signature and expiry, returning the claims. Any defect maps
// to ErrUnauthorized; the caller cannot distinguish bad signatures from
// expired tokens.
func (t *Tokens) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, models.ErrUnauthorized
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", models.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", models.ErrUnauthorized)
	}
	return claims, nil
}
