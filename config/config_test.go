package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonwraymond/realestate/toolerr"
)

var keyVars = []string{EnvDataGoKrKey, EnvOnbidKey, EnvOdcloudKey, EnvOdcloudServiceKey, "MCP_AUTH_TOKEN", "MCP_JWT_SECRET"}

// clearKeys blanks every credential variable for the duration of the test.
func clearKeys(t *testing.T) {
	t.Helper()
	for _, k := range keyVars {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearKeys(t)

	cfg, err := Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Cache.TTL != 300*time.Second || cfg.Cache.MaxSize != 100 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	u := cfg.Upstream
	if u.RetryMaxAttempts != 3 || u.RetryInitialDelay != time.Second || u.RetryMaxDelay != 8*time.Second {
		t.Errorf("retry = %+v", u)
	}
	if u.RequestTimeout != 30*time.Second || u.SlowResponseThreshold != 10*time.Second {
		t.Errorf("timeouts = %+v", u)
	}
	if u.BreakerFailureThreshold != 5 || u.BreakerRecoveryTimeout != 30*time.Second {
		t.Errorf("breaker = %+v", u)
	}
	if cfg.Server.Transport != TransportStdio || cfg.Server.HTTPAddr != "127.0.0.1:8090" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Telemetry.LogLevel != "info" || cfg.Telemetry.Exporter != "none" {
		t.Errorf("telemetry = %+v", cfg.Telemetry)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearKeys(t)
	t.Setenv("CACHE_TTL", "1m")
	t.Setenv("CACHE_MAX_SIZE", "10")
	t.Setenv("UPSTREAM_RATE_LIMIT", "2.5")
	t.Setenv("MCP_TRANSPORT", "http")

	cfg, err := Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Cache.TTL != time.Minute || cfg.Cache.MaxSize != 10 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Upstream.RateLimit != 2.5 || cfg.Server.Transport != TransportHTTP {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero cache size", "CACHE_MAX_SIZE", "0"},
		{"zero attempts", "RETRY_MAX_ATTEMPTS", "0"},
		{"unknown transport", "MCP_TRANSPORT", "grpc"},
		{"unknown exporter", "OTEL_EXPORTER", "jaeger"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearKeys(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(context.Background(), ""); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Load() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoad_UnparsableValue(t *testing.T) {
	clearKeys(t)
	t.Setenv("CACHE_TTL", "five minutes")
	if _, err := Load(context.Background(), ""); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	clearKeys(t)
	t.Setenv(EnvOnbidKey, "from-env")
	t.Setenv("REALESTATE_DOTENV_ONLY", "")
	os.Unsetenv("REALESTATE_DOTENV_ONLY")

	path := filepath.Join(t.TempDir(), ".env")
	content := "DATA_GO_KR_API_KEY=from-file\nONBID_API_KEY=file-onbid\nREALESTATE_DOTENV_ONLY=seeded\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("REALESTATE_DOTENV_ONLY") })

	if cfg.Keys.Onbid != "from-env" {
		t.Errorf("Onbid = %q, environment should win", cfg.Keys.Onbid)
	}
	if os.Getenv("REALESTATE_DOTENV_ONLY") != "seeded" {
		t.Errorf("unset variable was not seeded from the file")
	}
}

func TestLoadDotEnv_MissingFileIgnored(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
}

func TestLoad_SecretReferences(t *testing.T) {
	clearKeys(t)
	path := filepath.Join(t.TempDir(), "molit.key")
	if err := os.WriteFile(path, []byte("file-key\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvDataGoKrKey, "file:"+path)
	t.Setenv("REALESTATE_TEST_ONBID", "env-key")
	t.Setenv(EnvOnbidKey, "env:REALESTATE_TEST_ONBID")

	cfg, err := Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Keys.DataGoKr != "file-key" || cfg.Keys.Onbid != "env-key" {
		t.Errorf("keys = %+v", cfg.Keys)
	}
}

func TestKeyAccessors(t *testing.T) {
	t.Run("no keys", func(t *testing.T) {
		cfg := &Config{}
		var missing *toolerr.MissingConfigError

		_, err := cfg.MOLITKey()
		if !errors.As(err, &missing) || missing.EnvVars[0] != EnvDataGoKrKey {
			t.Errorf("MOLITKey() error = %v", err)
		}
		_, err = cfg.OnbidKey()
		if !errors.As(err, &missing) || len(missing.EnvVars) != 2 {
			t.Errorf("OnbidKey() error = %v", err)
		}
		_, err = cfg.OdcloudKey()
		if !errors.As(err, &missing) || len(missing.EnvVars) != 3 {
			t.Errorf("OdcloudKey() error = %v", err)
		}
		if env := toolerr.Classify(err); env.Kind != toolerr.KindConfig {
			t.Errorf("kind = %v", env.Kind)
		}
	})

	t.Run("fallbacks", func(t *testing.T) {
		cfg := &Config{Keys: Keys{DataGoKr: "shared"}}
		if k, _ := cfg.OnbidKey(); k != "shared" {
			t.Errorf("OnbidKey() = %q", k)
		}
		if a, _ := cfg.OdcloudKey(); a.Key != "shared" || a.Header {
			t.Errorf("OdcloudKey() = %+v", a)
		}
	})

	t.Run("odcloud precedence", func(t *testing.T) {
		cfg := &Config{Keys: Keys{DataGoKr: "shared", Odcloud: "infuser", OdcloudService: "svc"}}
		if a, _ := cfg.OdcloudKey(); a.Key != "infuser" || !a.Header {
			t.Errorf("OdcloudKey() = %+v", a)
		}
		cfg.Keys.Odcloud = ""
		if a, _ := cfg.OdcloudKey(); a.Key != "svc" || a.Header {
			t.Errorf("OdcloudKey() = %+v", a)
		}
	})

	t.Run("credentials", func(t *testing.T) {
		got := (&Config{Keys: Keys{Onbid: "o"}}).Credentials()
		if got["molit"] || !got["onbid"] || got["odcloud"] {
			t.Errorf("Credentials() = %v", got)
		}
	})
}
