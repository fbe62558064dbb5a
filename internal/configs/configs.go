/*
Package configs loads the server settings.

Settings come from an optional YAML/JSON/TOML file plus EPGUEST_* environment
variables, which take precedence. Values are decoded with viper and
mapstructure and validated with go-playground/validator.

Besides the fixed server keys, any other top-level block in the settings file
is kept verbatim in AppConfig.Plugins so that plugins can decode their own
sections, for example:

	ep_guest:
	  username: visitor
*/
package configs

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"epguest/internal/app/user"
	"epguest/internal/pkg/randx"
)

// EnvPrefix is the prefix of environment variable overrides, e.g. EPGUEST_PORT.
const EnvPrefix = "EPGUEST"

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment string `mapstructure:"environment" validate:"required,oneof=development production test"`
	Port        int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Title       string `mapstructure:"title" validate:"required"`

	// RequireAuthentication forces every request through the authentication chain.
	// The guest plugin is inert unless this is set.
	RequireAuthentication bool `mapstructure:"require_authentication"`

	// Security Settings
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// Database Settings, only used when Session.Store is "postgres".
	DatabaseURL string `mapstructure:"database_url"`

	Session   SessionConfig   `mapstructure:"session"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Pad       PadConfig       `mapstructure:"pad"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`

	// Users are the accounts known to the server, keyed by username.
	Users map[string]UserConfig `mapstructure:"users" validate:"dive"`

	// Plugins holds every unrecognized top-level block, keyed by plugin name.
	Plugins map[string]any `mapstructure:",remain"`
}

// SessionConfig controls session cookies and storage.
type SessionConfig struct {
	Secret     string        `mapstructure:"secret" validate:"required,min=32"`
	CookieName string        `mapstructure:"cookie_name" validate:"required"`
	MaxAge     time.Duration `mapstructure:"max_age" validate:"required,gt=0"`
	Store      string        `mapstructure:"store" validate:"required,oneof=memory postgres"`

	// Secure marks the cookie HTTPS-only.
	Secure bool `mapstructure:"secure"`
}

// RateLimitConfig bounds requests that carry credentials and pad socket upgrades.
type RateLimitConfig struct {
	AuthRate    float64 `mapstructure:"auth_rate" validate:"gt=0"`
	AuthBurst   int     `mapstructure:"auth_burst" validate:"gt=0"`
	SocketRate  float64 `mapstructure:"socket_rate" validate:"gt=0"`
	SocketBurst int     `mapstructure:"socket_burst" validate:"gt=0"`
}

// PadConfig limits the pad host.
type PadConfig struct {
	MaxClients int `mapstructure:"max_clients" validate:"gte=0"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// UserConfig is one entry of the users block.
type UserConfig struct {
	Password     string `mapstructure:"password"`
	PasswordHash string `mapstructure:"password_hash"`
	IsAdmin      bool   `mapstructure:"is_admin"`
	ReadOnly     bool   `mapstructure:"read_only"`
	DisplayName  string `mapstructure:"display_name"`

	// DisplayNameChangeable defaults to true when omitted.
	DisplayNameChangeable *bool `mapstructure:"display_name_changeable"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// setDefaults registers every fixed key so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("port", 9001)
	v.SetDefault("title", "Etherpad")
	v.SetDefault("require_authentication", false)
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("database_url", "")

	v.SetDefault("session.secret", "")
	v.SetDefault("session.cookie_name", "epguest_sid")
	v.SetDefault("session.max_age", "24h")
	v.SetDefault("session.store", "memory")
	v.SetDefault("session.secure", false)

	v.SetDefault("rate_limit.auth_rate", 0.5)
	v.SetDefault("rate_limit.auth_burst", 5)
	v.SetDefault("rate_limit.socket_rate", 1.0)
	v.SetDefault("rate_limit.socket_burst", 10)

	v.SetDefault("pad.max_clients", 50)

	v.SetDefault("metrics.enabled", true)
}

// LoadConfig reads the settings file at path (optional; empty means none) and
// environment overrides, then applies defaults and validates the result.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				return nil, fmt.Errorf("settings file not found: %s", path)
			}
			return nil, fmt.Errorf("failed to read settings file: %w", err)
		}
	}

	var cfg AppConfig
	hooks := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hooks)); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("settings validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *AppConfig) applyDefaults() error {
	origins := c.AllowedOrigins[:0]
	for _, o := range c.AllowedOrigins {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.AllowedOrigins = origins

	if c.Session.Secret == "" && c.IsDevelopment() {
		secret, err := randx.Secret(32)
		if err != nil {
			return err
		}
		c.Session.Secret = secret
	}

	if c.Plugins == nil {
		c.Plugins = map[string]any{}
	}
	return nil
}

// Validate checks struct tags and cross-field rules.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Session.Store == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when session.store is postgres")
	}
	for name, u := range c.Users {
		if u.Password == "" && u.PasswordHash == "" {
			return fmt.Errorf("user %q needs a password or password_hash", name)
		}
	}
	return nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// UserRecords converts the users block into user records keyed by username.
func (c *AppConfig) UserRecords() map[string]*user.User {
	records := make(map[string]*user.User, len(c.Users))
	for name, u := range c.Users {
		changeable := true
		if u.DisplayNameChangeable != nil {
			changeable = *u.DisplayNameChangeable
		}
		records[name] = &user.User{
			Username:              name,
			DisplayName:           u.DisplayName,
			DisplayNameChangeable: changeable,
			ReadOnly:              u.ReadOnly,
			IsAdmin:               u.IsAdmin,
			Password:              u.Password,
			PasswordHash:          u.PasswordHash,
		}
	}
	return records
}

// DecodePlugin decodes the settings block of the named plugin into out.
// A missing block leaves out untouched.
func DecodePlugin(plugins map[string]any, name string, out any) error {
	block, ok := plugins[name]
	if !ok || block == nil {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(block); err != nil {
		return fmt.Errorf("invalid %s settings: %w", name, err)
	}
	return nil
}
