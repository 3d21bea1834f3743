package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonwraymond/ddbclient/auth"
	"github.com/jonwraymond/ddbclient/resilience"
	"github.com/jonwraymond/ddbclient/secret"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ddbctl.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.RateLimit.Requests != 5 || cfg.RateLimit.Window != time.Second {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.Breaker.FailureThreshold != 5 || cfg.Breaker.Cooldown != 30*time.Second {
		t.Errorf("Breaker = %+v", cfg.Breaker)
	}
	if cfg.Throttle.Delay != 5*time.Second || cfg.Throttle.MaxRetries != 0 {
		t.Errorf("Throttle = %+v", cfg.Throttle)
	}
	if cfg.Cache.MaxSize != 500 || cfg.Cache.DefaultTTL != 5*time.Minute {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
credentials:
  token: secretref:env:TEST_DDB_TOKEN
  cookies:
    CobaltSession: ${TEST_DDB_COOKIE}
  web_hosts: [www.dndbeyond.com]
cache:
  default_ttl: 10m
  max_size: 50
rate_limit:
  requests: 2
  window: 500ms
breaker:
  cooldown: 1m
throttle:
  max_retries: 3
  strategy: exponential
request_timeout: 10s
max_concurrent: 4
observe:
  service_name: test
  logging:
    enabled: true
    level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Cache.DefaultTTL != 10*time.Minute || cfg.Cache.MaxSize != 50 {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Cache.MaxTTL != 0 {
		t.Errorf("Cache.MaxTTL = %v, want default 0 (no clamp)", cfg.Cache.MaxTTL)
	}
	if cfg.RateLimit.Requests != 2 || cfg.RateLimit.Window != 500*time.Millisecond {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.Breaker.FailureThreshold != 5 || cfg.Breaker.Cooldown != time.Minute {
		t.Errorf("Breaker = %+v", cfg.Breaker)
	}
	if cfg.Observe.ServiceName != "test" || cfg.Observe.Logging.Level != "debug" {
		t.Errorf("Observe = %+v", cfg.Observe)
	}
	if cfg.Credentials.Token != "secretref:env:TEST_DDB_TOKEN" {
		t.Errorf("token expanded at load time: %q", cfg.Credentials.Token)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	cc, err := cfg.ClientConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cc.Throttle.Strategy != resilience.BackoffExponential || cc.Throttle.MaxRetries != 3 {
		t.Errorf("Throttle = %+v", cc.Throttle)
	}
	if cc.RequestTimeout != 10*time.Second || cc.MaxConcurrent != 4 {
		t.Errorf("RequestTimeout = %v, MaxConcurrent = %d", cc.RequestTimeout, cc.MaxConcurrent)
	}
	if len(cc.WebHosts) != 1 || cc.WebHosts[0] != "www.dndbeyond.com" {
		t.Errorf("WebHosts = %v", cc.WebHosts)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load("/nonexistent/ddbctl.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "rate_limit: [")); err == nil {
		t.Error("expected error for invalid YAML")
	}
	if _, err := Load(writeConfig(t, "breaker:\n  cooldown: soon\n")); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"missing token", func(c *Config) { c.Credentials.Token = "" }, ErrMissingToken},
		{"zero requests", func(c *Config) { c.RateLimit.Requests = 0 }, ErrInvalidLimit},
		{"zero window", func(c *Config) { c.RateLimit.Window = 0 }, ErrInvalidLimit},
		{"zero threshold", func(c *Config) { c.Breaker.FailureThreshold = 0 }, ErrInvalidLimit},
		{"negative cache size", func(c *Config) { c.Cache.MaxSize = -1 }, ErrInvalidLimit},
		{"negative retries", func(c *Config) { c.Throttle.MaxRetries = -1 }, ErrInvalidLimit},
		{"unknown strategy", func(c *Config) { c.Throttle.Strategy = "random" }, ErrInvalidBackoff},
		{"cache ratio", func(c *Config) { c.Health.CacheWarnRatio = 1.5 }, ErrInvalidHealth},
		{"observe", func(c *Config) { c.Observe.ServiceName = "" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Credentials.Token = ""
	cfg.RateLimit.Requests = -1
	cfg.Throttle.Strategy = "random"

	err := cfg.Validate()
	for _, want := range []error{ErrMissingToken, ErrInvalidLimit, ErrInvalidBackoff} {
		if !errors.Is(err, want) {
			t.Errorf("Validate() = %v, missing %v", err, want)
		}
	}
}

func TestCredentials(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cookie"), []byte("session-value\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEST_DDB_TOKEN", "tok")

	cfg := Default()
	cfg.Credentials = CredentialsConfig{
		Token:     "${TEST_DDB_TOKEN}",
		Cookies:   map[string]string{"CobaltSession": "secretref:file:cookie"},
		SecretDir: dir,
	}

	creds, err := cfg.Credentials(context.Background())
	if err != nil {
		t.Fatalf("Credentials() error = %v", err)
	}
	if creds.Token != "tok" || creds.Cookies["CobaltSession"] != "session-value" {
		t.Errorf("Credentials() = %+v", creds)
	}
}

func TestCredentials_Errors(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"unset variable", "${TEST_DDB_UNSET_TOKEN}", secret.ErrMissingEnv},
		{"unknown provider", "secretref:vault:ddb", secret.ErrProviderNotRegistered},
		{"empty secret", "secretref:env:TEST_DDB_EMPTY", secret.ErrEmptySecret},
		{"empty token", "", auth.ErrMissingCredentials},
	}

	t.Setenv("TEST_DDB_EMPTY", "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Credentials.Token = tt.token
			if _, err := cfg.Credentials(context.Background()); !errors.Is(err, tt.want) {
				t.Errorf("Credentials() error = %v, want %v", err, tt.want)
			}
		})
	}
}
