package upstream

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

type cookieKey struct{}

// WithCookie stores the caller's Cookie header so backend calls run with the caller's session.
func WithCookie(ctx context.Context, cookie string) context.Context {
	if cookie == "" {
		return ctx
	}
	return context.WithValue(ctx, cookieKey{}, cookie)
}

// CookieFromContext returns the forwarded Cookie header, if any.
func CookieFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(cookieKey{}).(string)
	return v
}

// CredentialScope fingerprints the forwarded credentials so results loaded for one caller
// are never served to another. Anonymous callers share the empty scope.
func CredentialScope(ctx context.Context) string {
	cookie := CookieFromContext(ctx)
	if cookie == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(cookie))
	return hex.EncodeToString(sum[:16])
}
