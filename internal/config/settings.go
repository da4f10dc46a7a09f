package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Settings file names, in lookup order.
var settingsFiles = []string{"config.yaml", "config.yml", "config.toml"}

// Environment variables that override the settings file.
const (
	EnvAPIKey      = "WHOP_API_KEY"
	EnvAPIBase     = "WHOP_API_BASE"
	EnvStorage     = "STREAKTODO_STORAGE"
	EnvDatabaseURL = "STREAKTODO_DATABASE_URL"
)

// DefaultAPIBase is the upstream the proxy forwards to.
const DefaultAPIBase = "https://api.whop.com"

// Settings represents the optional settings file.
type Settings struct {
	Storage StorageSettings `yaml:"storage" toml:"storage"`
	Proxy   ProxySettings   `yaml:"proxy" toml:"proxy"`
	Server  ServerSettings  `yaml:"server" toml:"server"`
	Logging LoggingSettings `yaml:"logging" toml:"logging"`
	Streak  StreakSettings  `yaml:"streak" toml:"streak"`
	Mirror  MirrorSettings  `yaml:"mirror" toml:"mirror"`
}

// StorageSettings selects where tasks are persisted.
type StorageSettings struct {
	Backend string `yaml:"backend" toml:"backend"` // file, sqlite, postgres or memory
	Path    string `yaml:"path" toml:"path"`
	DSN     string `yaml:"dsn" toml:"dsn"` // postgres only
}

// ProxySettings configures the upstream API proxy.
type ProxySettings struct {
	APIKey       string   `yaml:"api_key" toml:"api_key"`
	BaseURL      string   `yaml:"base_url" toml:"base_url"`
	AllowedPaths []string `yaml:"allowed_paths" toml:"allowed_paths"`
}

// ServerSettings holds the HTTP listen address.
type ServerSettings struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// LoggingSettings holds logging configuration.
type LoggingSettings struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// StreakSettings holds the progress goal.
type StreakSettings struct {
	Goal int `yaml:"goal" toml:"goal"`
}

// MirrorSettings configures the Google Tasks mirror.
type MirrorSettings struct {
	List string `yaml:"list" toml:"list"`
}

// DefaultSettings returns the settings used when no file is present.
func DefaultSettings() Settings {
	return Settings{
		Storage: StorageSettings{Backend: "file"},
		Proxy:   ProxySettings{BaseURL: DefaultAPIBase},
		Server:  ServerSettings{Addr: "127.0.0.1:8080"},
		Logging: LoggingSettings{Level: "warn", Format: "text"},
		Streak:  StreakSettings{Goal: 7},
		Mirror:  MirrorSettings{List: "Streak Todos"},
	}
}

// SettingsPath returns the settings file in the config directory, or "" if
// there is none.
func (c *Config) SettingsPath() string {
	for _, name := range settingsFiles {
		p := filepath.Join(c.Dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads the settings file (if any), applies environment overrides and
// validates the result. Values of the form ${VAR_NAME} in the file are
// replaced with the environment variable's value.
func (c *Config) Load() error {
	settings := DefaultSettings()

	if path := c.SettingsPath(); path != "" {
		if err := loadSettingsFile(path, &settings); err != nil {
			return err
		}
	}
	applyEnv(&settings)

	if err := settings.Validate(); err != nil {
		return fmt.Errorf("validating settings: %w", err)
	}
	c.Settings = settings
	return nil
}

func loadSettingsFile(path string, s *Settings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading settings file: %w", err)
	}
	expanded := expandEnvVars(string(data))

	switch filepath.Ext(path) {
	case ".toml":
		if _, err := toml.Decode(expanded, s); err != nil {
			return fmt.Errorf("parsing settings file: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(expanded), s); err != nil {
			return fmt.Errorf("parsing settings file: %w", err)
		}
	}
	return nil
}

func applyEnv(s *Settings) {
	if v := os.Getenv(EnvAPIKey); v != "" {
		s.Proxy.APIKey = v
	}
	if v := os.Getenv(EnvAPIBase); v != "" {
		s.Proxy.BaseURL = v
	}
	if v := os.Getenv(EnvStorage); v != "" {
		s.Storage.Backend = v
	}
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		s.Storage.DSN = v
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// Validate checks the settings and fills in defaults for empty values.
func (s *Settings) Validate() error {
	s.Storage.Backend = strings.ToLower(strings.TrimSpace(s.Storage.Backend))
	switch s.Storage.Backend {
	case "":
		s.Storage.Backend = "file"
	case "file", "sqlite", "memory":
	case "postgres":
		if s.Storage.DSN == "" {
			return errors.New("storage.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("storage.backend must be file, sqlite, postgres or memory, got %q", s.Storage.Backend)
	}

	if s.Proxy.BaseURL == "" {
		s.Proxy.BaseURL = DefaultAPIBase
	}
	if !strings.HasPrefix(s.Proxy.BaseURL, "http://") && !strings.HasPrefix(s.Proxy.BaseURL, "https://") {
		return fmt.Errorf("proxy.base_url must be an http(s) URL, got %q", s.Proxy.BaseURL)
	}

	if s.Streak.Goal < 0 {
		return errors.New("streak.goal must not be negative")
	}
	if s.Streak.Goal == 0 {
		s.Streak.Goal = 7
	}
	if s.Server.Addr == "" {
		s.Server.Addr = "127.0.0.1:8080"
	}
	return nil
}
