// Package config loads flow configuration from file and environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/meikuraledutech/flow/catalog"
	"github.com/meikuraledutech/flow/codec"
)

// Config holds all application configuration.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Packages PackagesConfig `mapstructure:"packages"`
	Editor   EditorConfig   `mapstructure:"editor"`
	Log      LogConfig      `mapstructure:"log"`
}

// APIConfig is the backend the CLI talks to.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// DatabaseConfig selects the project store. An empty URL keeps projects in memory.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type PackagesConfig struct {
	Folder   string   `mapstructure:"folder"`
	Active   []string `mapstructure:"active"`
	Implicit []string `mapstructure:"implicit"`
	Watch    bool     `mapstructure:"watch"`
}

type EditorConfig struct {
	ConnectionPolicy string `mapstructure:"connection_policy"`
	ConstraintPolicy string `mapstructure:"constraint_policy"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:3000")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("server.listen", ":3000")
	v.SetDefault("database.url", "")
	v.SetDefault("packages.folder", "")
	v.SetDefault("packages.active", []string{})
	v.SetDefault("packages.implicit", codec.DefaultImplicitPackages)
	v.SetDefault("packages.watch", false)
	v.SetDefault("editor.connection_policy", "abort")
	v.SetDefault("editor.constraint_policy", "last")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if _, ok := codec.ParseConnectionPolicy(c.Editor.ConnectionPolicy); !ok {
		warnings = append(warnings, fmt.Sprintf("editor connection_policy %q is not abort or skip, using abort", c.Editor.ConnectionPolicy))
	}
	if _, ok := catalog.ParseConstraintPolicy(c.Editor.ConstraintPolicy); !ok {
		warnings = append(warnings, fmt.Sprintf("editor constraint_policy %q is not last or intersect, using last", c.Editor.ConstraintPolicy))
	}
	if c.Packages.Watch && c.Packages.Folder == "" {
		warnings = append(warnings, "packages watch is enabled but no folder is set")
	}
	if c.API.Timeout < 0 {
		warnings = append(warnings, fmt.Sprintf("api timeout %s is negative", c.API.Timeout))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		warnings = append(warnings, fmt.Sprintf("log format %q is not text or json", c.Log.Format))
	}
	return warnings
}

// ConnectionPolicy returns the parsed editor connection policy.
func (c *Config) ConnectionPolicy() codec.ConnectionPolicy {
	p, _ := codec.ParseConnectionPolicy(c.Editor.ConnectionPolicy)
	return p
}

// ConstraintPolicy returns the parsed editor constraint policy.
func (c *Config) ConstraintPolicy() catalog.ConstraintPolicy {
	p, _ := catalog.ParseConstraintPolicy(c.Editor.ConstraintPolicy)
	return p
}

// Load reads configuration from file and environment. An empty path reads
// the environment and defaults only.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("FLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}
	return &cfg, nil
}

// NewLogger builds a logger writing to w at the configured level and format.
func NewLogger(w io.Writer, c LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
