package auth

import "context"

type claimsKey struct{}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// FromContext returns the claims attached by WithClaims, if any.
func FromContext(ctx context.Context) (*Claims, bool) {
	if claims, ok := ctx.Value(claimsKey{}).(*Claims); ok && claims != nil {
		return claims, true
	}
	return nil, false
}
