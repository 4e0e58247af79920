package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Skipper selects requests that pass through unauthenticated.
type Skipper func(r *http.Request) bool

// Middleware rejects requests without a valid bearer token and stores the
// claims of the accepted ones on the request context.
type Middleware struct {
	Config  Config
	Skipper Skipper
}

// NewMiddleware constructs a Middleware. skipper may be nil.
func NewMiddleware(cfg Config, skipper Skipper) Middleware {
	return Middleware{Config: cfg, Skipper: skipper}
}

// Wrap returns next guarded by token validation.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Skipper != nil && m.Skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := bearerToken(r.Header.Get("Authorization"))
		var claims *Claims
		if err == nil {
			claims, err = Parse(token, m.Config)
		}
		if err != nil {
			unauthorized(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", ErrInvalidToken
	}
	return strings.TrimSpace(token), nil
}

func unauthorized(w http.ResponseWriter, err error) {
	detail := ErrInvalidToken.Error()
	if errors.Is(err, ErrMissingToken) {
		detail = ErrMissingToken.Error()
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="fitness"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"type": "unauthorized", "detail": detail})
}
