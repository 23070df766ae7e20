package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/realestate/cache"
	"github.com/jonwraymond/realestate/observe"
	"github.com/jonwraymond/realestate/realestate"
	"github.com/jonwraymond/realestate/resilience"
	"github.com/jonwraymond/realestate/toolerr"
)

// Implementation name reported to clients.
const Name = "realestate-mcp"

// Diagnostics reports fetch pipeline state. *fetch.Pipeline implements it.
type Diagnostics interface {
	CacheStats() cache.Stats
	BreakerStates() map[string]resilience.CircuitBreakerMetrics
}

// Server owns the MCP server and its tool set.
type Server struct {
	server     *mcp.Server
	svc        *realestate.Service
	diag       Diagnostics
	middleware *observe.Middleware
	logger     observe.Logger
	version    string
	tools      []string
}

// Option configures a Server.
type Option func(*Server)

// WithMiddleware wraps every tool in m.
func WithMiddleware(m *observe.Middleware) Option {
	return func(s *Server) {
		if m != nil {
			s.middleware = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithVersion sets the version reported to clients.
func WithVersion(v string) Option {
	return func(s *Server) {
		if v != "" {
			s.version = v
		}
	}
}

// New builds the server and registers every tool.
func New(svc *realestate.Service, diag Diagnostics, opts ...Option) *Server {
	s := &Server{
		svc:     svc,
		diag:    diag,
		logger:  observe.NopLogger(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.middleware == nil {
		s.middleware = observe.NewMiddleware(nil, nil, s.logger)
	}

	s.server = mcp.NewServer(&mcp.Implementation{Name: Name, Version: s.version}, &mcp.ServerOptions{
		HasTools: true,
	})
	s.registerTools()
	return s
}

// MCP returns the underlying SDK server.
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// Tools lists registered tool names in registration order.
func (s *Server) Tools() []string {
	return append([]string(nil), s.tools...)
}

// Run serves one client over stdin and stdout until ctx ends or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "serving MCP over stdio", observe.F("tools", len(s.tools)))
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// toolDef describes one tool. defaults seeds the input before the client's
// arguments are decoded over it.
type toolDef[In any] struct {
	name        string
	category    string
	description string
	defaults    In
	run         func(ctx context.Context, in In) (any, *toolerr.Envelope)
}

func addTool[In any](s *Server, def toolDef[In]) {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		panic(fmt.Sprintf("mcpserver: schema for %s: %v", def.name, err))
	}

	meta := observe.ToolMeta{
		ID:       def.name,
		Name:     def.name,
		Version:  s.version,
		Category: def.category,
	}
	exec := s.middleware.Wrap(func(ctx context.Context, _ observe.ToolMeta, input any) (any, error) {
		out, env := def.run(ctx, input.(In))
		if env != nil {
			return nil, env
		}
		return out, nil
	})

	s.server.AddTool(&mcp.Tool{
		Name:        def.name,
		Description: def.description,
		InputSchema: schema,
	}, func(ctx context.Context, req *mcp.CallToolRequest) (res *mcp.CallToolResult, _ error) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error(ctx, "tool panicked",
					observe.F("tool", def.name),
					observe.F("panic", fmt.Sprint(r)),
					observe.F("stack", string(debug.Stack())),
				)
				res = envelopeResult(toolerr.InternalError(fmt.Sprint(r)))
			}
		}()

		in := def.defaults
		if raw := req.Params.Arguments; len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &in); err != nil {
				return envelopeResult(toolerr.New(toolerr.KindInvalidInput,
					"Arguments do not match the tool schema: "+err.Error(),
					"Check parameter names and types against the tool's input schema.")), nil
			}
		}

		out, err := exec(ctx, meta, in)
		if err != nil {
			return envelopeResult(toolerr.Classify(err)), nil
		}
		return jsonResult(out), nil
	})
	s.tools = append(s.tools, def.name)
}

func jsonResult(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return envelopeResult(toolerr.InternalError("encode result: " + err.Error()))
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(b)}}}
}

func envelopeResult(env *toolerr.Envelope) *mcp.CallToolResult {
	b, err := json.Marshal(env)
	if err != nil {
		b = []byte(`{"error":"internal_error","message":"Internal error.","suggestion":"Retry the request."}`)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
		IsError: true,
	}
}
