package config

import (
	"log/slog"
	"testing"
	"time"
)

func env(vars map[string]string) func(string) string {
	return func(name string) string { return vars[name] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{"BACKEND_URL": "https://api.example.com/"}))
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want 8080", cfg.ServerPort)
	}
	if cfg.Backend.Timeout != 15*time.Second || cfg.Backend.Every != 20*time.Millisecond {
		t.Errorf("backend timing = %v/%v", cfg.Backend.Timeout, cfg.Backend.Every)
	}
	if cfg.Backend.Burst != 10 || cfg.Backend.MaxRetries != 3 {
		t.Errorf("backend burst/retries = %d/%d", cfg.Backend.Burst, cfg.Backend.MaxRetries)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.DatabaseURL != "" || cfg.RedisURL != "" || cfg.R2.Complete() {
		t.Error("optional integrations should be disabled by default")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"BACKEND_URL":          "https://api.example.com/",
		"SERVER_PORT":          "9000",
		"LOG_LEVEL":            "debug",
		"CORS_ALLOWED_ORIGINS": "https://a.example, https://b.example ,",
		"BACKEND_MAX_RETRIES":  "0",
		"AUDIT_PRUNE_INTERVAL": "30m",
	}))
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.ServerPort != 9000 {
		t.Errorf("ServerPort = %d", cfg.ServerPort)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.Backend.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d", cfg.Backend.MaxRetries)
	}
	if cfg.AuditPruneInterval != 30*time.Minute {
		t.Errorf("AuditPruneInterval = %v", cfg.AuditPruneInterval)
	}
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"missing backend", map[string]string{}},
		{"bad port", map[string]string{"BACKEND_URL": "x", "SERVER_PORT": "abc"}},
		{"port out of range", map[string]string{"BACKEND_URL": "x", "SERVER_PORT": "70000"}},
		{"bad duration", map[string]string{"BACKEND_URL": "x", "BACKEND_TIMEOUT": "soon"}},
		{"negative retries", map[string]string{"BACKEND_URL": "x", "BACKEND_MAX_RETRIES": "-1"}},
		{"bad level", map[string]string{"BACKEND_URL": "x", "LOG_LEVEL": "loud"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromEnv(env(tt.vars)); err == nil {
				t.Error("FromEnv() error = nil, want error")
			}
		})
	}
}
