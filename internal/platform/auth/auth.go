// Package auth validates and issues the HS256 bearer tokens used by the fitness API.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config holds signer parameters. It is built once from process configuration and passed by value.
type Config struct {
	Secret string
	Issuer string
}

// Claims is the verified identity carried by a request.
type Claims struct {
	Subject   string
	Scopes    map[string]struct{}
	ExpiresAt time.Time
}

var (
	// ErrMissingToken is returned when the Authorization header is absent.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken wraps parsing and validation errors.
	ErrInvalidToken = errors.New("invalid bearer token")
	// ErrMissingSecret is returned when a signer is used without a configured secret.
	ErrMissingSecret = errors.New("jwt secret is not configured")
)

// tokenClaims is the wire form. Scope is a space separated list as in RFC 8693.
type tokenClaims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Parse validates a signed token against cfg.
func Parse(token string, cfg Config) (*Claims, error) {
	token = strings.TrimSpace(token)
	switch {
	case token == "":
		return nil, ErrMissingToken
	case cfg.Secret == "":
		return nil, ErrMissingSecret
	}

	parser := jwt.NewParser(parserOptions(cfg)...)
	var tc tokenClaims
	if _, err := parser.ParseWithClaims(token, &tc, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if tc.Subject == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}

	return &Claims{
		Subject:   tc.Subject,
		Scopes:    scopeSet(tc.Scope),
		ExpiresAt: tc.ExpiresAt.Time,
	}, nil
}

func parserOptions(cfg Config) []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return opts
}

func scopeSet(scope string) map[string]struct{} {
	fields := strings.Fields(scope)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// HasScope reports whether scope was granted. A nil receiver holds no scopes.
func (c *Claims) HasScope(scope string) bool {
	if c == nil {
		return false
	}
	_, ok := c.Scopes[scope]
	return ok
}

// HasAnyScope is HasScope over a list.
func (c *Claims) HasAnyScope(scopes ...string) bool {
	for _, scope := range scopes {
		if c.HasScope(scope) {
			return true
		}
	}
	return false
}
