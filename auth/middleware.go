package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jonwraymond/realestate/observe"
)

// Middleware rejects requests that authn does not accept with 401. A nil
// authn attaches the anonymous identity and lets every request through.
func Middleware(authn Authenticator, logger observe.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if authn == nil {
				next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, AnonymousIdentity())))
				return
			}

			req := RequestFromHTTP(r)
			if !authn.Supports(ctx, req) {
				unauthorized(w, ErrMissingCredentials)
				return
			}

			result, err := authn.Authenticate(ctx, req)
			if err != nil {
				logger.Error(ctx, "authentication failed", observe.F("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if !result.Authenticated {
				logger.Warn(ctx, "request rejected",
					observe.F("method", result.Method),
					observe.F("reason", result.Error),
					observe.F("path", r.URL.Path))
				unauthorized(w, result.Error)
				return
			}

			logger.Debug(ctx, "request authenticated",
				observe.F("principal", result.Identity.Principal),
				observe.F("method", result.Method))
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, result.Identity)))
		})
	}
}

func unauthorized(w http.ResponseWriter, err error) {
	if err == nil {
		err = ErrInvalidCredentials
	}
	code := "invalid_token"
	if errors.Is(err, ErrMissingCredentials) {
		code = "missing_token"
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="realestate-mcp"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": err.Error()})
}
