// Package auth mints and parses the signed JWTs used for sessions.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes access tokens from refresh tokens so one can never stand in for the other.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Audience is the aud claim carried by every token.
const Audience = "quill-app"

// ErrInvalidToken is returned for any token that fails signature, expiry, issuer, audience or type checks.
var ErrInvalidToken = errors.New("invalid token")

// Claims embeds the registered claims. Email and Name are only set on access tokens.
type Claims struct {
	jwt.RegisteredClaims
	Type  TokenType `json:"typ"`
	Email string    `json:"email,omitempty"`
	Name  string    `json:"name,omitempty"`
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, c.Subject)
	}
	return uint(id), nil
}

// Subject is the identity a token is minted for.
type Subject struct {
	ID    uint
	Email string
	Name  string
}

// Signer mints and verifies one kind of token with its own secret and lifetime.
type Signer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	typ    TokenType
	now    func() time.Time
}

// NewSigner returns a Signer for tokens of type typ.
func NewSigner(secret string, ttl time.Duration, issuer string, typ TokenType) *Signer {
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		typ:    typ,
		now:    time.Now,
	}
}

// WithClock returns a copy of s that reads time from now.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	cp := *s
	cp.now = now
	return &cp
}

// Sign mints a token for sub. Each token gets a random jti, so two tokens minted
// within the same second still differ.
func (s *Signer) Sign(sub Subject) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(sub.ID), 10),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
		Type: s.typ,
	}
	if s.typ == TokenTypeAccess {
		claims.Email = sub.Email
		claims.Name = sub.Name
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", s.typ, err)
	}
	return signed, nil
}

// Parse verifies tokenString and returns its claims.
func (s *Signer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != s.typ {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, s.typ, claims.Type)
	}
	return claims, nil
}
