// Package auth carries the caller's credential from the inbound request to
// outbound calls made on its behalf. Authentication itself happens upstream.
package auth

import (
	"context"
	"strings"
)

type ctxKey struct{}

// WithBearerToken stores a bearer token (without the "Bearer " prefix).
func WithBearerToken(ctx context.Context, token string) context.Context {
	token = strings.TrimSpace(token)
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, token)
}

func BearerToken(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(ctxKey{}).(string)
	return t, ok && t != ""
}

// FromHeader extracts the token from an Authorization header value.
func FromHeader(h string) string {
	h = strings.TrimSpace(h)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
