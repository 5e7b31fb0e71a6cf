package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/Ning0612/sftpsweep/internal/domain"
	"github.com/Ning0612/sftpsweep/internal/logger"
)

// Config represents the complete configuration for sftpsweep
type Config struct {
	// StateDir holds the run history database, lock files and the PID file
	StateDir string `mapstructure:"state_dir"`

	Log LogConfig `mapstructure:"log"`

	// Profiles are keyed by lowercase name
	Profiles map[string]domain.Profile `mapstructure:"profiles"`
}

// LogConfig is the log section of the configuration file
type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig configures the rotated log file
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Validate checks if the configuration is complete and consistent
func (c *Config) Validate() error {
	if c.StateDir == "" {
		return fmt.Errorf("%w: state_dir cannot be empty", domain.ErrConfigInvalid)
	}
	if _, ok := logger.ParseLevel(c.Log.Level); !ok {
		return fmt.Errorf("%w: unknown log level %q", domain.ErrConfigInvalid, c.Log.Level)
	}
	if _, ok := logger.ParseFormat(c.Log.Format); !ok {
		return fmt.Errorf("%w: unknown log format %q", domain.ErrConfigInvalid, c.Log.Format)
	}
	if len(c.Profiles) == 0 {
		return fmt.Errorf("%w: no profiles defined", domain.ErrConfigInvalid)
	}

	for _, name := range c.ProfileNames() {
		p := c.Profiles[name]
		if err := p.Validate(); err != nil {
			return err
		}
		if _, err := cron.ParseStandard(p.Schedule); err != nil {
			return fmt.Errorf("%w: profile %s has invalid schedule %q: %v", domain.ErrConfigInvalid, name, p.Schedule, err)
		}
	}
	return nil
}

// GetProfile returns a profile by name, ignoring case
func (c *Config) GetProfile(name string) (domain.Profile, error) {
	p, ok := c.Profiles[strings.ToLower(name)]
	if !ok {
		return domain.Profile{}, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, name)
	}
	return p, nil
}

// ProfileNames returns all profile names in sorted order
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StatePath returns a file path inside the state directory
func (c *Config) StatePath(name string) string {
	return filepath.Join(c.StateDir, name)
}

// LoggerConfig converts the log section into a logger configuration
// writing to stdout and, when enabled, to the rotated file
func (c *Config) LoggerConfig() logger.Config {
	level, _ := logger.ParseLevel(c.Log.Level)
	format, _ := logger.ParseFormat(c.Log.Format)
	cfg := logger.Config{
		Level:   level,
		Format:  format,
		Outputs: []logger.OutputConfig{{Type: logger.OutputStdout}},
		Secrets: c.secrets(),
	}
	if c.Log.File.Enabled {
		cfg.File = logger.FileConfig{
			Enabled:    true,
			Path:       c.Log.File.Path,
			MaxSizeMB:  c.Log.File.MaxSizeMB,
			MaxAgeDays: c.Log.File.MaxAgeDays,
			MaxBackups: c.Log.File.MaxBackups,
			Compress:   c.Log.File.Compress,
		}
	}
	return cfg
}

// secrets collects profile passwords, which double as key passphrases
func (c *Config) secrets() []string {
	var out []string
	for _, name := range c.ProfileNames() {
		if pw := c.Profiles[name].Password; pw != "" {
			out = append(out, pw)
		}
	}
	return out
}

// DefaultStateDir returns the state directory used when none is configured
func DefaultStateDir() string {
	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "sftpsweep")
	}
	return ".sftpsweep"
}

// ExpandPath expands ~ and environment variables in a local path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	// Expand ~ to home directory
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
