package config_test

import (
	"testing"

	"github.com/classloop/classloop/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIPort != 5050 {
		t.Errorf("expected default port 5050, got %d", cfg.APIPort)
	}
	if cfg.APITimeoutMS != 5000 {
		t.Errorf("expected default timeout 5000ms, got %d", cfg.APITimeoutMS)
	}
	if got := cfg.BaseURL(); got != "http://localhost:5050/api" {
		t.Errorf("unexpected base URL %q", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CLASSLOOP_API_HOST", "https://api.example.com")
	t.Setenv("CLASSLOOP_API_PORT", "8443")
	t.Setenv("CLASSLOOP_API_TIMEOUT_MS", "1500")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.BaseURL(); got != "https://api.example.com:8443/api" {
		t.Errorf("unexpected base URL %q", got)
	}
	if cfg.Timeout().Milliseconds() != 1500 {
		t.Errorf("expected 1500ms timeout, got %v", cfg.Timeout())
	}
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"missing scheme", "CLASSLOOP_API_HOST", "localhost"},
		{"bad port", "CLASSLOOP_API_PORT", "70000"},
		{"zero timeout", "CLASSLOOP_API_TIMEOUT_MS", "0"},
		{"bcrypt cost too low", "CLASSLOOP_DEV_BCRYPT_COST", "2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := config.Load(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
