// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package auth

import "context"

type claimsKey struct{}

// WithClaims returns a copy of ctx carrying the validated session claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the session claims attached by WithClaims.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok && claims != nil
}
