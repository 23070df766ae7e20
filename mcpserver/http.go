package mcpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/realestate/auth"
	"github.com/jonwraymond/realestate/health"
	"github.com/jonwraymond/realestate/observe"
)

// Path of the streamable HTTP endpoint.
const MCPPath = "/mcp"

// HTTPOptions configures Handler.
type HTTPOptions struct {
	// Authn guards /mcp. Nil leaves it open.
	Authn auth.Authenticator
	// Health, when set, is mounted on /healthz, /readyz and /health.
	Health *health.Aggregator
	// Metrics, when set, is served on /metrics.
	Metrics http.Handler
}

// Handler returns the router used in HTTP mode.
func (s *Server) Handler(opts HTTPOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	streamable := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, &mcp.StreamableHTTPOptions{JSONResponse: true})
	// The request log sits behind auth so it can name the caller.
	r.With(auth.Middleware(opts.Authn, s.logger), requestLogger(s.logger)).Handle(MCPPath, streamable)

	r.Group(func(r chi.Router) {
		r.Use(requestLogger(s.logger))
		if opts.Health != nil {
			health.Mount(r, opts.Health)
		}
		if opts.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", opts.Metrics)
		}
	})
	return r
}

// ListenAndServe listens on addr and serves handler until ctx ends, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, ln, handler)
}

func (s *Server) serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info(ctx, "serving MCP over HTTP",
		observe.F("addr", ln.Addr().String()),
		observe.F("path", MCPPath),
		observe.F("tools", len(s.tools)),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	s.logger.Info(shutdownCtx, "shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger(logger observe.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			fields := []observe.Field{
				observe.F("request_id", chimw.GetReqID(r.Context())),
				observe.F("method", r.Method),
				observe.F("path", r.URL.Path),
				observe.F("status", ww.Status()),
				observe.F("bytes", ww.BytesWritten()),
				observe.F("duration_ms", time.Since(start).Milliseconds()),
			}
			if caller := auth.PrincipalFromContext(r.Context()); caller != "" {
				fields = append(fields, observe.F("caller", caller))
			}
			logger.Debug(r.Context(), "http request", fields...)
		})
	}
}
