package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Project  ProjectConfig     `yaml:"project"`
	Site     SiteConfig        `yaml:"site"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Settings SettingsConfig    `yaml:"settings"`
	Editor   EditorConfig      `yaml:"editor"`
	Keywords KeywordsConfig    `yaml:"keywords"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Project.Validate(); err != nil {
		return err
	}
	if err := c.Site.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	if err := c.Editor.Validate(); err != nil {
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

// ProjectConfig holds the Jekyll project layout.
//
// Path may be left empty in the YAML config; the value stored in config.ini
// (settings section, project_path key) takes over in that case, so a fresh
// install keeps working with whatever project was used last.
type ProjectConfig struct {
	Path        string `yaml:"path"`
	PostsDir    string `yaml:"posts_dir"`
	AuthorsFile string `yaml:"authors_file"`
}

// Validate validates the project configuration.
func (c *ProjectConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PostsDir, validation.Required),
		validation.Field(&c.AuthorsFile, validation.Required),
	)
}

var tzOffsetRe = regexp.MustCompile(`^[+-]\d{4}$`)

// SiteConfig holds site-wide front matter conventions.
type SiteConfig struct {
	// TZOffset is the UTC offset stamped on posts created without an
	// explicit date, in ±hhmm form (e.g. "+0800").
	TZOffset string `yaml:"tz_offset"`
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TZOffset, validation.Required, validation.Match(tzOffsetRe)),
	)
}

// Location returns the fixed timezone described by TZOffset.
func (c *SiteConfig) Location() *time.Location {
	t, err := time.Parse("-0700", c.TZOffset)
	if err != nil {
		return time.Local
	}
	return t.Location()
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

// SettingsConfig holds the location of the mutable config.ini file.
type SettingsConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the settings configuration.
func (c *SettingsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// EditorConfig holds the external editor command.
type EditorConfig struct {
	Command string `yaml:"command"`
}

// Validate validates the editor configuration.
func (c *EditorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Command, validation.Required),
	)
}

// KeywordsConfig holds credentials for the keyword extraction API.
// An empty APIKey disables the feature; the config.ini api section may
// override all three fields at runtime.
type KeywordsConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
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
		Project: ProjectConfig{
			PostsDir:    "_posts",
			AuthorsFile: "_data/authors.yml",
		},
		Site: SiteConfig{
			TZOffset: "+0800",
		},
		SQLite: SQLiteConfig{
			Path: "./ansuz.db",
		},
		Settings: SettingsConfig{
			Path: "config.ini",
		},
		Editor: EditorConfig{
			Command: "code",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
