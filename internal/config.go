package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/lorekeep/internal/layout"
	"github.com/starford/lorekeep/internal/scene"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Vault  VaultConfig       `yaml:"vault"`
	Layout LayoutConfig      `yaml:"layout"`
	Render RenderConfig      `yaml:"render"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Layout.Validate(); err != nil {
		return err
	}
	return c.Render.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
	// GraphThrottle is the minimum gap between graph.updated SSE events.
	GraphThrottle time.Duration `yaml:"graph_throttle"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.GraphThrottle, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// VaultConfig controls the optional Markdown mirror of the store.
type VaultConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Watch   bool   `yaml:"watch"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
}

// LayoutConfig wraps the layout constants so they can be tuned from YAML.
type LayoutConfig struct {
	layout.Config `yaml:",inline"`
}

// Validate validates the layout configuration.
func (c *LayoutConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.VerticalGap, validation.Required, validation.Min(1.0)),
		validation.Field(&c.HorizontalGap, validation.Required, validation.Min(1.0)),
		validation.Field(&c.K, validation.Required, validation.Min(0.01)),
		validation.Field(&c.Iterations, validation.Required, validation.Min(1), validation.Max(10000)),
		validation.Field(&c.Scale, validation.Required, validation.Min(1.0)),
	)
}

// RenderConfig holds the map surface settings.
type RenderConfig struct {
	Width       float64           `yaml:"width"`
	Height      float64           `yaml:"height"`
	ExportScale float64           `yaml:"export_scale"`
	Colors      map[string]string `yaml:"colors"` // category -> #rrggbb
}

var errBadColor = errors.New("must be a #rrggbb colour")

// Validate validates the render configuration.
func (c *RenderConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Width, validation.Required, validation.Min(1.0)),
		validation.Field(&c.Height, validation.Required, validation.Min(1.0)),
		validation.Field(&c.ExportScale, validation.Required, validation.Min(0.25), validation.Max(8.0)),
		validation.Field(&c.Colors, validation.Each(validation.By(func(v any) error {
			s, _ := v.(string)
			if _, err := scene.ParseHex(s); err != nil {
				return errBadColor
			}
			return nil
		}))),
	)
}

// Theme returns the default theme with the configured overrides applied.
// The config must have been validated.
func (c *RenderConfig) Theme() scene.Theme {
	t := scene.DefaultTheme()
	if c.ExportScale > 0 {
		t.ExportScale = c.ExportScale
	}
	for category, hex := range c.Colors {
		if col, err := scene.ParseHex(hex); err == nil {
			t = t.WithColor(category, col)
		}
	}
	return t
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:        8080,
				CORSOrigins: []string{"*"},
			},
			GraphThrottle: 2 * time.Second,
		},
		SQLite: SQLiteConfig{
			Path: "./lorekeep.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Vault: VaultConfig{
			Path:  "./vault",
			Watch: true,
		},
		Layout: LayoutConfig{Config: layout.DefaultConfig()},
		Render: RenderConfig{
			Width:       1200,
			Height:      800,
			ExportScale: scene.DefaultTheme().ExportScale,
		},
	}
}
