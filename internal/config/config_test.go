package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Env != EnvLocal {
		t.Errorf("expected default env %q, got %q", EnvLocal, cfg.Env)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Orders.CancelWindow != 5*time.Minute {
		t.Errorf("expected default cancel window 5m, got %s", cfg.Orders.CancelWindow)
	}
	if cfg.Auth.OTPTTL != 15*time.Minute {
		t.Errorf("expected default otp ttl 15m, got %s", cfg.Auth.OTPTTL)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.canteen.yml")

	original := DefaultConfig()
	original.Env = EnvProduction
	original.Server.Port = 9000
	original.Server.AllowedOrigins = []string{"https://canteen.example.com", "https://admin.example.com", "http://localhost:5173"}
	original.Database.Path = "/var/lib/canteen/canteen.db"
	original.Auth.TokenTTL = 2 * time.Hour
	original.Orders.CancelWindow = 10 * time.Minute
	original.Events.NATSURL = "nats://localhost:4222"

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Env != original.Env {
		t.Errorf("env: got %q, want %q", loaded.Env, original.Env)
	}
	if loaded.Server.Port != original.Server.Port {
		t.Errorf("port: got %d, want %d", loaded.Server.Port, original.Server.Port)
	}
	if loaded.Database.Path != original.Database.Path {
		t.Errorf("database.path: got %q, want %q", loaded.Database.Path, original.Database.Path)
	}
	if loaded.Auth.TokenTTL != original.Auth.TokenTTL {
		t.Errorf("token_ttl: got %s, want %s", loaded.Auth.TokenTTL, original.Auth.TokenTTL)
	}
	if loaded.Orders.CancelWindow != original.Orders.CancelWindow {
		t.Errorf("cancel_window: got %s, want %s", loaded.Orders.CancelWindow, original.Orders.CancelWindow)
	}
	if loaded.Events.NATSURL != original.Events.NATSURL {
		t.Errorf("nats_url: got %q, want %q", loaded.Events.NATSURL, original.Events.NATSURL)
	}
	if len(loaded.Server.AllowedOrigins) != len(original.Server.AllowedOrigins) {
		t.Fatalf("allowed_origins length: got %d, want %d", len(loaded.Server.AllowedOrigins), len(original.Server.AllowedOrigins))
	}
	for i, v := range loaded.Server.AllowedOrigins {
		if v != original.Server.AllowedOrigins[i] {
			t.Errorf("allowed_origins[%d]: got %q, want %q", i, v, original.Server.AllowedOrigins[i])
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Database.Path != "data/canteen.db" {
		t.Errorf("expected default database path, got %q", cfg.Database.Path)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("CANTEEN_ENV", "development")
	t.Setenv("CANTEEN_SERVER__PORT", "9090")
	t.Setenv("CANTEEN_AUTH__JWT_SECRET", "an-override-secret-of-sufficient-length")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Env != EnvDevelopment {
		t.Errorf("env override failed: got %q, want %q", loaded.Env, EnvDevelopment)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("port override failed: got %d, want 9090", loaded.Server.Port)
	}
	if loaded.Auth.JWTSecret != "an-override-secret-of-sufficient-length" {
		t.Errorf("jwt_secret override failed: got %q", loaded.Auth.JWTSecret)
	}
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"CANTEEN_ENV", "env"},
		{"CANTEEN_SERVER__PORT", "server.port"},
		{"CANTEEN_MAIL__FROM", "mail.from"},
		{"CANTEEN_ORDERS__CANCEL_WINDOW", "orders.cancel_window"},
	}
	for _, tt := range tests {
		if got := envKey(tt.input); got != tt.want {
			t.Errorf("envKey(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestValidateValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestValidateProductionSecret(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Env = EnvProduction
	cfg.Auth.JWTSecret = "a-real-production-secret-of-some-length"
	if err := cfg.Validate(); err != nil {
		t.Errorf("production config with its own secret should be valid, got: %v", err)
	}
}

func TestValidateInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown env", func(c *Config) { c.Env = "staging" }},
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
		{"short jwt secret", func(c *Config) { c.Auth.JWTSecret = "short" }},
		{"default jwt secret in production", func(c *Config) { c.Env = EnvProduction }},
		{"zero token ttl", func(c *Config) { c.Auth.TokenTTL = 0 }},
		{"negative cancel window", func(c *Config) { c.Orders.CancelWindow = -time.Minute }},
		{"mail without host", func(c *Config) { c.Mail.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"http://localhost:3000", []string{"http://localhost:3000"}},
		{"", nil},
		{"  ,  , ", nil},
	}
	for _, tt := range tests {
		got := splitAndTrim(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("splitAndTrim(%q) len = %d, want %d", tt.input, len(got), len(tt.want))
			continue
		}
		for i, v := range got {
			if v != tt.want[i] {
				t.Errorf("splitAndTrim(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
			}
		}
	}
}
