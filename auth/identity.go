package auth

import (
	"context"
	"time"
)

// AuthMethod names the credential that admitted a caller.
type AuthMethod string

const (
	AuthMethodJWT       AuthMethod = "jwt"
	AuthMethodAPIKey    AuthMethod = "api_key"
	AuthMethodAnonymous AuthMethod = "anonymous"
)

// Identity is the caller admitted to the MCP endpoint.
type Identity struct {
	// Principal is the JWT subject or the static token's key ID.
	Principal string
	Method    AuthMethod
	// ExpiresAt is zero for credentials without an expiry.
	ExpiresAt time.Time
}

// AnonymousIdentity is attached when the HTTP endpoint runs without auth.
func AnonymousIdentity() *Identity {
	return &Identity{Principal: "anonymous", Method: AuthMethodAnonymous}
}

type identityKey struct{}

// WithIdentity attaches id to ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// PrincipalFromContext returns the admitted caller, or "" outside the
// auth middleware.
func PrincipalFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(identityKey{}).(*Identity); ok && id != nil {
		return id.Principal
	}
	return ""
}
