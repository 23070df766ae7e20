package auth

import "context"

// FromConfig builds the authenticator for the HTTP endpoint. It returns nil
// when neither a static token nor a JWT secret is configured, which leaves
// the endpoint open. With both set, a JWT-shaped bearer token is tried as a
// JWT first and the static token second.
func FromConfig(token, jwtSecret string) Authenticator {
	var auths anyOf
	if jwtSecret != "" {
		auths = append(auths, NewJWTAuthenticator(JWTConfig{Secret: []byte(jwtSecret)}))
	}
	if token != "" {
		auths = append(auths, NewAPIKeyAuthenticator(APIKeyConfig{AcceptBearer: true}, token))
	}
	switch len(auths) {
	case 0:
		return nil
	case 1:
		return auths[0]
	default:
		return auths
	}
}

// anyOf admits a request when one of its members does.
type anyOf []Authenticator

func (a anyOf) Name() string { return "any" }

func (a anyOf) Supports(ctx context.Context, req *AuthRequest) bool {
	for _, m := range a {
		if m.Supports(ctx, req) {
			return true
		}
	}
	return false
}

// Authenticate returns the first success, or the last member's failure.
func (a anyOf) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	last := AuthFailure(ErrMissingCredentials, a.Name())
	for _, m := range a {
		if !m.Supports(ctx, req) {
			continue
		}
		result, err := m.Authenticate(ctx, req)
		if err != nil {
			return nil, err
		}
		if result.Authenticated {
			return result, nil
		}
		last = result
	}
	return last, nil
}
