// Package config loads server settings from the environment.
//
// Values come from process environment variables, optionally seeded from a
// .env file. The real environment always wins over the file.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"

	"github.com/jonwraymond/realestate/secret"
	"github.com/jonwraymond/realestate/toolerr"
)

// Environment variable names for upstream keys.
const (
	EnvDataGoKrKey       = "DATA_GO_KR_API_KEY"
	EnvOnbidKey          = "ONBID_API_KEY"
	EnvOdcloudKey        = "ODCLOUD_API_KEY"
	EnvOdcloudServiceKey = "ODCLOUD_SERVICE_KEY"
)

// Transports accepted by MCP_TRANSPORT.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config holds all server settings.
type Config struct {
	Keys       Keys
	Cache      CacheConfig
	Upstream   UpstreamConfig
	Server     ServerConfig
	Telemetry  TelemetryConfig
	RegionFile string `env:"REGION_CODES_FILE"`
}

// Keys are the upstream API credentials. Any of them may be empty; tools
// of the affected family then answer with config_error.
type Keys struct {
	DataGoKr       string `env:"DATA_GO_KR_API_KEY"`
	Onbid          string `env:"ONBID_API_KEY"`
	Odcloud        string `env:"ODCLOUD_API_KEY"`
	OdcloudService string `env:"ODCLOUD_SERVICE_KEY"`
}

// CacheConfig sizes the response cache.
type CacheConfig struct {
	TTL     time.Duration `env:"CACHE_TTL" envDefault:"300s"`
	MaxSize int           `env:"CACHE_MAX_SIZE" envDefault:"100"`
}

// UpstreamConfig tunes the fetch pipeline.
type UpstreamConfig struct {
	RetryMaxAttempts        int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"3"`
	RetryInitialDelay       time.Duration `env:"RETRY_INITIAL_DELAY" envDefault:"1s"`
	RetryMaxDelay           time.Duration `env:"RETRY_MAX_DELAY" envDefault:"8s"`
	RequestTimeout          time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ConnectTimeout          time.Duration `env:"CONNECT_TIMEOUT" envDefault:"5s"`
	ReadTimeout             time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	SlowResponseThreshold   time.Duration `env:"SLOW_RESPONSE_THRESHOLD" envDefault:"10s"`
	BreakerFailureThreshold int           `env:"BREAKER_FAILURE_THRESHOLD" envDefault:"5"`
	BreakerRecoveryTimeout  time.Duration `env:"BREAKER_RECOVERY_TIMEOUT" envDefault:"30s"`
	RateLimit               float64       `env:"UPSTREAM_RATE_LIMIT" envDefault:"0"`
	MaxConcurrency          int           `env:"UPSTREAM_MAX_CONCURRENCY" envDefault:"0"`
}

// ServerConfig selects the MCP transport.
type ServerConfig struct {
	Transport string `env:"MCP_TRANSPORT" envDefault:"stdio"`
	HTTPAddr  string `env:"MCP_HTTP_ADDR" envDefault:"127.0.0.1:8090"`
	AuthToken string `env:"MCP_AUTH_TOKEN"`
	JWTSecret string `env:"MCP_JWT_SECRET"`
}

// TelemetryConfig controls logging and OpenTelemetry export.
type TelemetryConfig struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Exporter string `env:"OTEL_EXPORTER" envDefault:"none"`
}

// Load seeds the environment from envFile when it exists, parses the
// environment and resolves secret references in the key values. An empty
// envFile skips the file.
func Load(ctx context.Context, envFile string) (*Config, error) {
	if err := LoadDotEnv(envFile); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.resolveSecrets(ctx, secret.Default()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv copies KEY=VALUE pairs from path into the process environment
// for keys that are not already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return fmt.Errorf("set %s: %w", name, err)
		}
	}
	return nil
}

func (c *Config) resolveSecrets(ctx context.Context, r *secret.Resolver) error {
	resolved, err := r.ResolveMap(ctx, map[string]string{
		EnvDataGoKrKey:       c.Keys.DataGoKr,
		EnvOnbidKey:          c.Keys.Onbid,
		EnvOdcloudKey:        c.Keys.Odcloud,
		EnvOdcloudServiceKey: c.Keys.OdcloudService,
		"MCP_AUTH_TOKEN":     c.Server.AuthToken,
		"MCP_JWT_SECRET":     c.Server.JWTSecret,
	})
	if err != nil {
		return fmt.Errorf("resolve secrets: %w", err)
	}
	c.Keys.DataGoKr = resolved[EnvDataGoKrKey]
	c.Keys.Onbid = resolved[EnvOnbidKey]
	c.Keys.Odcloud = resolved[EnvOdcloudKey]
	c.Keys.OdcloudService = resolved[EnvOdcloudServiceKey]
	c.Server.AuthToken = resolved["MCP_AUTH_TOKEN"]
	c.Server.JWTSecret = resolved["MCP_JWT_SECRET"]
	return nil
}

// Validate checks value ranges. Missing API keys are not an error here.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, name, want string) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s must be %s", ErrInvalidConfig, name, want))
		}
	}

	u := c.Upstream
	check(c.Cache.TTL > 0, "CACHE_TTL", "positive")
	check(c.Cache.MaxSize > 0, "CACHE_MAX_SIZE", "positive")
	check(u.RetryMaxAttempts >= 1, "RETRY_MAX_ATTEMPTS", "at least 1")
	check(u.RetryInitialDelay >= 0, "RETRY_INITIAL_DELAY", "non-negative")
	check(u.RetryMaxDelay >= u.RetryInitialDelay, "RETRY_MAX_DELAY", "at least RETRY_INITIAL_DELAY")
	check(u.RequestTimeout > 0, "REQUEST_TIMEOUT", "positive")
	check(u.ConnectTimeout > 0, "CONNECT_TIMEOUT", "positive")
	check(u.ReadTimeout > 0, "READ_TIMEOUT", "positive")
	check(u.SlowResponseThreshold > 0, "SLOW_RESPONSE_THRESHOLD", "positive")
	check(u.BreakerFailureThreshold >= 1, "BREAKER_FAILURE_THRESHOLD", "at least 1")
	check(u.BreakerRecoveryTimeout > 0, "BREAKER_RECOVERY_TIMEOUT", "positive")
	check(u.RateLimit >= 0, "UPSTREAM_RATE_LIMIT", "non-negative")
	check(u.MaxConcurrency >= 0, "UPSTREAM_MAX_CONCURRENCY", "non-negative")
	check(c.Server.Transport == TransportStdio || c.Server.Transport == TransportHTTP,
		"MCP_TRANSPORT", "stdio or http")
	switch c.Telemetry.Exporter {
	case "none", "stdout", "otlp", "prometheus":
	default:
		check(false, "OTEL_EXPORTER", "none, stdout, otlp or prometheus")
	}

	return errors.Join(errs...)
}

// MOLITKey returns the data.go.kr key used by the transaction tools.
func (c *Config) MOLITKey() (string, error) {
	if c.Keys.DataGoKr == "" {
		return "", &toolerr.MissingConfigError{EnvVars: []string{EnvDataGoKrKey}}
	}
	return c.Keys.DataGoKr, nil
}

// OnbidKey returns ONBID_API_KEY, falling back to DATA_GO_KR_API_KEY.
func (c *Config) OnbidKey() (string, error) {
	switch {
	case c.Keys.Onbid != "":
		return c.Keys.Onbid, nil
	case c.Keys.DataGoKr != "":
		return c.Keys.DataGoKr, nil
	}
	return "", &toolerr.MissingConfigError{EnvVars: []string{EnvOnbidKey, EnvDataGoKrKey}}
}

// OdcloudAuth says how odcloud requests carry their key.
type OdcloudAuth struct {
	// Key is the credential value.
	Key string
	// Header is true for "Authorization: Infuser <key>", false for the
	// serviceKey query parameter.
	Header bool
}

// OdcloudKey prefers ODCLOUD_API_KEY as a header, then ODCLOUD_SERVICE_KEY
// and DATA_GO_KR_API_KEY as a query parameter.
func (c *Config) OdcloudKey() (OdcloudAuth, error) {
	switch {
	case c.Keys.Odcloud != "":
		return OdcloudAuth{Key: c.Keys.Odcloud, Header: true}, nil
	case c.Keys.OdcloudService != "":
		return OdcloudAuth{Key: c.Keys.OdcloudService}, nil
	case c.Keys.DataGoKr != "":
		return OdcloudAuth{Key: c.Keys.DataGoKr}, nil
	}
	return OdcloudAuth{}, &toolerr.MissingConfigError{
		EnvVars: []string{EnvOdcloudKey, EnvOdcloudServiceKey, EnvDataGoKrKey},
	}
}

// Credentials reports which API families have a usable key.
func (c *Config) Credentials() map[string]bool {
	_, molitErr := c.MOLITKey()
	_, onbidErr := c.OnbidKey()
	_, odcloudErr := c.OdcloudKey()
	return map[string]bool{
		"molit":   molitErr == nil,
		"onbid":   onbidErr == nil,
		"odcloud": odcloudErr == nil,
	}
}
