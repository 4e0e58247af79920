package auth

import (
	"net/http"

	authlib "example.com/fitness/internal/platform/auth"
)

// Middleware enforces bearer-token authentication on incoming requests.
type Middleware struct {
	inner authlib.Middleware
}

// NewMiddleware constructs Middleware with validation config. Health, metrics,
// CORS preflight, registration and login are public.
func NewMiddleware(cfg Config) Middleware {
	return Middleware{inner: authlib.NewMiddleware(cfg, public)}
}

// Wrap attaches authentication handling to an http.Handler.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return m.inner.Wrap(next)
}

func public(r *http.Request) bool {
	if r.Method == http.MethodOptions {
		return true
	}
	switch r.URL.Path {
	case "/healthz", "/metrics":
		return true
	case "/v1/users", "/v1/users/login":
		return r.Method == http.MethodPost
	}
	return false
}
