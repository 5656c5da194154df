package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/lorekeep/pkg/config"
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
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestVaultConfig_PathRequiredWhenEnabled(t *testing.T) {
	cfg := VaultConfig{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled vault needs no path: %v", err)
	}
	cfg.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled vault without path should fail")
	}
}

func TestLayoutConfig_Bounds(t *testing.T) {
	cfg := NewDefaultConfig().Layout
	cfg.Iterations = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero iterations should fail")
	}
}

func TestRenderConfig_Colors(t *testing.T) {
	cfg := NewDefaultConfig().Render
	cfg.Colors = map[string]string{"Faction": "#010203"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid colour rejected: %v", err)
	}
	theme := cfg.Theme()
	if got := theme.Color("Faction"); got.R != 1 || got.G != 2 || got.B != 3 {
		t.Errorf("Faction colour = %v", got)
	}

	cfg.Colors["Guild"] = "blue"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("bad colour should fail validation")
	}
	if !strings.Contains(err.Error(), "rrggbb") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `app:
  log_level: debug
  http:
    port: 9090
  graph_throttle: 500ms
sqlite:
  path: ${LOREKEEP_TEST_DB}
vault:
  enabled: true
  path: ./vault
layout:
  vertical_gap: 200
  horizontal_gap: 150
  k: 1.2
  iterations: 40
  scale: 320
render:
  width: 800
  height: 600
  export_scale: 2
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOREKEEP_TEST_DB", "/tmp/lore.db")

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.App.LogLevel != slog.LevelDebug {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.App.GraphThrottle != 500*time.Millisecond {
		t.Errorf("graph throttle = %v", cfg.App.GraphThrottle)
	}
	if cfg.SQLite.Path != "/tmp/lore.db" {
		t.Errorf("sqlite path = %q, want env expansion", cfg.SQLite.Path)
	}
	if cfg.Layout.VerticalGap != 200 || cfg.Layout.Iterations != 40 {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	if !cfg.Vault.Enabled || !cfg.Vault.Watch {
		t.Errorf("vault = %+v, watch should keep its default", cfg.Vault)
	}
}
