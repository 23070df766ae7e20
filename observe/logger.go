package observe

import (
	"context"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const redactedValue = "[REDACTED]"

// ParseLevel parses a log level name. Unknown names map to info.
func ParseLevel(s string) zapcore.Level {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// NewZap builds a production JSON zap logger writing to stderr. Stdout is
// reserved for the stdio MCP transport.
func NewZap(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// NewLogger creates a zap-backed Logger at the given level.
func NewLogger(level string) (Logger, error) {
	z, err := NewZap(level)
	if err != nil {
		return nil, err
	}
	return NewZapLogger(z), nil
}

// NewZapLogger adapts an existing zap logger.
func NewZapLogger(z *zap.Logger) Logger {
	if z == nil {
		return NopLogger()
	}
	return &zapLogger{z: z}
}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger {
	return &zapLogger{z: zap.NewNop()}
}

type zapLogger struct {
	z *zap.Logger
}

func (l *zapLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	if ce := l.z.Check(zapcore.DebugLevel, msg); ce != nil {
		ce.Write(zapFields(ctx, fields)...)
	}
}

func (l *zapLogger) Info(ctx context.Context, msg string, fields ...Field) {
	if ce := l.z.Check(zapcore.InfoLevel, msg); ce != nil {
		ce.Write(zapFields(ctx, fields)...)
	}
}

func (l *zapLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	if ce := l.z.Check(zapcore.WarnLevel, msg); ce != nil {
		ce.Write(zapFields(ctx, fields)...)
	}
}

func (l *zapLogger) Error(ctx context.Context, msg string, fields ...Field) {
	if ce := l.z.Check(zapcore.ErrorLevel, msg); ce != nil {
		ce.Write(zapFields(ctx, fields)...)
	}
}

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{z: l.z.With(zapFields(nil, fields)...)}
}

func (l *zapLogger) WithTool(meta ToolMeta) Logger {
	fields := []zap.Field{
		zap.String("tool.id", meta.ToolID()),
		zap.String("tool.name", meta.Name),
	}
	if meta.Namespace != "" {
		fields = append(fields, zap.String("tool.namespace", meta.Namespace))
	}
	if meta.Version != "" {
		fields = append(fields, zap.String("tool.version", meta.Version))
	}
	return &zapLogger{z: l.z.With(fields...)}
}

func zapFields(ctx context.Context, fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+1)
	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			out = append(out, zap.String("trace_id", sc.TraceID().String()))
		}
	}
	for _, f := range fields {
		if isRedactedField(f.Key) {
			out = append(out, zap.String(f.Key, redactedValue))
			continue
		}
		if err, ok := f.Value.(error); ok {
			out = append(out, zap.NamedError(f.Key, err))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

func isRedactedField(key string) bool {
	lower := strings.ToLower(key)
	for _, k := range RedactedFields {
		if lower == k {
			return true
		}
	}
	return false
}

// RedactURL masks credential query parameters such as serviceKey so a URL
// can be logged. Unparseable input is replaced entirely.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return redactedValue
	}
	if u.RawQuery == "" {
		return u.String()
	}
	q := u.Query()
	changed := false
	for _, name := range redactedQueryParams {
		if _, ok := q[name]; ok {
			q.Set(name, "REDACTED")
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	return u.String()
}
