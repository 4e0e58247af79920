package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTokenTTL = 24 * time.Hour

// Issuer signs access tokens for authenticated users.
type Issuer struct {
	cfg Config
	ttl time.Duration
	now func() time.Time
}

// NewIssuer constructs an Issuer. A non-positive ttl means one day.
func NewIssuer(cfg Config, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Issuer{cfg: cfg, ttl: ttl, now: time.Now}
}

// Issue signs a token for subject and returns it with its expiry.
func (i *Issuer) Issue(subject string, scopes []string) (string, time.Time, error) {
	if i.cfg.Secret == "" {
		return "", time.Time{}, ErrMissingSecret
	}

	now := i.now().UTC().Truncate(time.Second)
	expires := now.Add(i.ttl)
	tc := tokenClaims{
		Scope: strings.Join(scopes, " "),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString([]byte(i.cfg.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}
