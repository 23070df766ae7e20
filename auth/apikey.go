package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
)

const bearerPrefix = "Bearer "

// APIKeyConfig configures the API key authenticator.
type APIKeyConfig struct {
	// HeaderName is the header containing the API key.
	// Default: "X-API-Key"
	HeaderName string

	// AcceptBearer also reads the key from "Authorization: Bearer <key>".
	AcceptBearer bool
}

// APIKeyAuthenticator compares the presented key against a fixed set of
// SHA-256 key hashes in constant time.
type APIKeyAuthenticator struct {
	config APIKeyConfig
	hashes map[string]string // hash -> key ID
}

// NewAPIKeyAuthenticator creates an authenticator accepting keys. Each key
// is identified as key-<n> in the resulting identity.
func NewAPIKeyAuthenticator(config APIKeyConfig, keys ...string) *APIKeyAuthenticator {
	if config.HeaderName == "" {
		config.HeaderName = "X-API-Key"
	}
	a := &APIKeyAuthenticator{config: config, hashes: make(map[string]string, len(keys))}
	for i, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			a.hashes[HashAPIKey(k)] = "key-" + strconv.Itoa(i+1)
		}
	}
	return a
}

// Name returns "api_key".
func (a *APIKeyAuthenticator) Name() string {
	return "api_key"
}

// Supports returns true if the request carries a key this authenticator reads.
func (a *APIKeyAuthenticator) Supports(_ context.Context, req *AuthRequest) bool {
	return a.extract(req) != ""
}

// Authenticate validates the API key.
func (a *APIKeyAuthenticator) Authenticate(_ context.Context, req *AuthRequest) (*AuthResult, error) {
	apiKey := a.extract(req)
	if apiKey == "" {
		return AuthFailure(ErrMissingCredentials, a.Name()), nil
	}

	presented := HashAPIKey(apiKey)
	var keyID string
	for hash, id := range a.hashes {
		if ConstantTimeCompare(hash, presented) {
			keyID = id
		}
	}
	if keyID == "" {
		return AuthFailure(ErrInvalidCredentials, a.Name()), nil
	}

	return AuthSuccess(&Identity{Principal: keyID, Method: AuthMethodAPIKey}), nil
}

func (a *APIKeyAuthenticator) extract(req *AuthRequest) string {
	if key := strings.TrimSpace(req.GetHeader(a.config.HeaderName)); key != "" {
		return key
	}
	if a.config.AcceptBearer {
		if header := req.GetHeader("Authorization"); strings.HasPrefix(header, bearerPrefix) {
			return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
		}
	}
	return ""
}

// HashAPIKey hashes an API key using SHA-256.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// ConstantTimeCompare performs constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

var _ Authenticator = (*APIKeyAuthenticator)(nil)
