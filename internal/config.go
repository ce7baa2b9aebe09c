package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gopkg.in/yaml.v3"

	"github.com/redmaple/streamsync/internal/content"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("config: invalid duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("config: invalid duration value")
	}
	*d = Duration(time.Duration(n))
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Feed     FeedConfig        `yaml:"feed"`
	Staging  StagingConfig     `yaml:"staging"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Import   ImportConfig      `yaml:"import"`
	Schedule ScheduleConfig    `yaml:"schedule"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Feed.Validate(); err != nil {
		return err
	}
	if err := c.Staging.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Import.Validate(); err != nil {
		return err
	}
	if err := c.Schedule.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
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

// FeedConfig holds the remote feed connection settings. Username, password,
// and feed id are hot-reloadable: changes picked up by the config watcher
// apply to the next remote call.
type FeedConfig struct {
	EndpointURL string `yaml:"endpoint_url"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	FeedID      string `yaml:"feed_id"`
	PageSize    int    `yaml:"page_size"`
	// DeleteAfterDownload controls whether scheduled imports acknowledge
	// items on the remote queue after staging them. Manual imports pass
	// the flag explicitly instead.
	DeleteAfterDownload bool `yaml:"delete_after_download"`
	// InsecureSkipVerify disables TLS verification for the feed endpoint
	// and asset downloads. Compatibility opt-out only; defaults to off.
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
	RequestTimeout     Duration `yaml:"request_timeout"`
}

// Validate validates the feed configuration.
func (c *FeedConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.EndpointURL, validation.Required, is.URL),
		validation.Field(&c.Username, validation.Required),
		validation.Field(&c.Password, validation.Required),
		validation.Field(&c.FeedID, validation.Required),
		validation.Field(&c.PageSize, validation.Min(1), validation.Max(100)),
	)
}

// StagingConfig holds the staging directory and the public base URL that
// rewritten asset references resolve against.
type StagingConfig struct {
	Path         string `yaml:"path"`
	AssetBaseURL string `yaml:"asset_base_url"`
}

// Validate validates the staging configuration.
func (c *StagingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.AssetBaseURL, validation.Required),
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

// ImportConfig holds the host-store defaults applied to imported records.
type ImportConfig struct {
	AuthorID   int64  `yaml:"author_id"`
	CategoryID int64  `yaml:"category_id"`
	Status     string `yaml:"status"`
}

// Validate validates the import configuration.
func (c *ImportConfig) Validate() error {
	if c.Status == "" {
		c.Status = string(content.StatusDraft)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Status, validation.In(string(content.StatusDraft), string(content.StatusPublished))),
	)
}

// ScheduleConfig controls the built-in interval scheduler. When disabled,
// imports run only via the API, the MCP tools, or the import subcommand.
type ScheduleConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Interval Duration `yaml:"interval"`
}

// Validate validates the schedule configuration.
func (c *ScheduleConfig) Validate() error {
	if c.Enabled && c.Interval.Std() < time.Minute {
		return fmt.Errorf("schedule: interval must be at least 1m, got %s", c.Interval.Std())
	}
	return nil
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
	// Normalise empty mode to "disabled" for backward compatibility.
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Feed: FeedConfig{
			PageSize:            10,
			DeleteAfterDownload: true,
			InsecureSkipVerify:  false,
			RequestTimeout:      Duration(30 * time.Second),
		},
		Staging: StagingConfig{
			Path:         "./staging",
			AssetBaseURL: "/assets",
		},
		SQLite: SQLiteConfig{
			Path: "./streamsync.db",
		},
		Import: ImportConfig{
			Status: string(content.StatusDraft),
		},
		Schedule: ScheduleConfig{
			Enabled:  false,
			Interval: Duration(24 * time.Hour),
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
