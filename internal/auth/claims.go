// Package auth adapts the platform bearer-token helpers to the fitness API routes.
package auth

import (
	"context"

	authlib "example.com/fitness/internal/platform/auth"
)

type (
	// Claims is the identity attached to an authenticated request.
	Claims = authlib.Claims
	// Config carries the signing secret and expected issuer.
	Config = authlib.Config
)

// FromContext returns the caller's claims once Middleware has accepted the request.
func FromContext(ctx context.Context) (*Claims, bool) {
	return authlib.FromContext(ctx)
}
