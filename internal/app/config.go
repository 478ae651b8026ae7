package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"codechallenge/internal/request"

	"github.com/caarlos0/env/v11"
	gap "github.com/muesli/go-app-paths"
	"gopkg.in/yaml.v3"
)

const (
	appName           = "codechallenge"
	envPrefix         = "CODECHALLENGE_"
	defaultBackendURL = "http://123.4.5.6:3000/"
)

// Config controls runtime behavior for both the TUI and the CLI commands.
type Config struct {
	BackendURL     string        `yaml:"backend_url" env:"BACKEND_URL"`
	DataDir        string        `yaml:"data_dir" env:"DATA_DIR"`
	LogPath        string        `yaml:"log_path" env:"LOG_PATH"`
	LogLevel       string        `yaml:"log_level" env:"LOG_LEVEL"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	Session        SessionConfig `yaml:"session" envPrefix:"SESSION_"`
	UI             UIConfig      `yaml:"ui" envPrefix:"UI_"`
}

type SessionConfig struct {
	InactivityTimeout time.Duration `yaml:"inactivity_timeout" env:"INACTIVITY_TIMEOUT"`
	RefreshPeriod     time.Duration `yaml:"refresh_period" env:"REFRESH_PERIOD"`
}

type UIConfig struct {
	TickMS int    `yaml:"tick_ms" env:"TICK_MS"`
	Style  string `yaml:"style" env:"STYLE"`
	ASCII  bool   `yaml:"ascii" env:"ASCII"`
}

func DefaultConfig() Config {
	return Config{
		BackendURL:     defaultBackendURL,
		LogLevel:       "info",
		RequestTimeout: request.DefaultTimeout,
		Session: SessionConfig{
			InactivityTimeout: 10 * time.Minute,
			RefreshPeriod:     5 * time.Minute,
		},
		UI: UIConfig{
			TickMS: 100,
			Style:  "dark",
		},
	}
}

// DefaultConfigPath is the per-user config file location.
func DefaultConfigPath() (string, error) {
	return gap.NewScope(gap.User, appName).ConfigPath("config.yaml")
}

// LoadConfig layers the YAML file at path and then the environment over the
// defaults. An empty path means the default location, which may be absent.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	explicit := path != ""
	if !explicit {
		p, err := DefaultConfigPath()
		if err != nil {
			return cfg, fmt.Errorf("resolve config path: %w", err)
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.BackendURL) == "" {
		c.BackendURL = defaultBackendURL
	}
	base, err := request.ParseBaseURL(c.BackendURL)
	if err != nil {
		return err
	}
	c.BackendURL = base.String()

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = request.DefaultTimeout
	}
	if c.Session.InactivityTimeout <= 0 {
		c.Session.InactivityTimeout = 10 * time.Minute
	}
	if c.Session.RefreshPeriod <= 0 {
		c.Session.RefreshPeriod = 5 * time.Minute
	}
	if c.UI.TickMS <= 0 {
		c.UI.TickMS = 100
	}
	switch c.UI.Style {
	case "", "dark", "light", "retro":
	default:
		return fmt.Errorf("invalid ui style %q", c.UI.Style)
	}
	if c.UI.Style == "" {
		c.UI.Style = "dark"
	}

	if c.DataDir == "" {
		dir, err := gap.NewScope(gap.User, appName).DataPath("")
		if err != nil {
			return errors.New("cannot resolve user data directory")
		}
		c.DataDir = dir
	}
	return nil
}

func (c Config) TickInterval() time.Duration {
	return time.Duration(c.UI.TickMS) * time.Millisecond
}
