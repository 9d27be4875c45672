package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("750ms")); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Std() != 750*time.Millisecond {
		t.Errorf("duration = %v, want 750ms", d.Std())
	}
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Error("invalid duration should fail")
	}
}

func TestClipboardConfig_IntervalTooSmall(t *testing.T) {
	cfg := ClipboardConfig{Enabled: true, PollInterval: Duration(10 * time.Millisecond)}
	if err := cfg.Validate(); err == nil {
		t.Error("sub-100ms poll interval should fail")
	}

	cfg.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled poller should skip interval check: %v", err)
	}
}

func TestSelectionConfig_Validation(t *testing.T) {
	cfg := SelectionConfig{Enabled: true, PollInterval: Duration(time.Second), Debounce: 0}
	if err := cfg.Validate(); err == nil {
		t.Error("zero debounce should fail when enabled")
	}

	cfg.Debounce = Duration(time.Second)
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid selection config rejected: %v", err)
	}
}

func TestInboxConfig_PathRequiredWhenEnabled(t *testing.T) {
	cfg := InboxConfig{Enabled: true, Path: ""}
	if err := cfg.Validate(); err == nil {
		t.Error("enabled inbox without path should fail")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}
