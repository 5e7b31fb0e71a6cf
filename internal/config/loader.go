package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Ning0612/sftpsweep/internal/domain"
	"github.com/Ning0612/sftpsweep/internal/logger"
)

// EnvPrefix prefixes environment variables that override configuration
// keys, e.g. SFTPSWEEP_STATE_DIR or SFTPSWEEP_LOG_FORMAT
const EnvPrefix = "SFTPSWEEP"

// DefaultLogFile is the log file name inside the state directory
const DefaultLogFile = "sftpsweep.log"

// DefaultConfigPaths returns the default paths to search for config files
func DefaultConfigPaths() []string {
	paths := []string{
		".",
		"./configs",
	}

	// Add user config directory
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "sftpsweep"))
	}

	// Add home directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "sftpsweep"))
		paths = append(paths, filepath.Join(homeDir, ".sftpsweep"))
	}

	return paths
}

// Load reads and parses a configuration file
// If path is empty, searches default locations for config.yaml
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range DefaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrConfigNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return decode(v)
}

// LoadFromString parses configuration from a YAML string
func LoadFromString(yamlContent string) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(strings.NewReader(yamlContent)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("state_dir", DefaultStateDir())
	v.SetDefault("log.level", logger.LevelInfo.String())
	v.SetDefault("log.format", logger.FormatText.String())
	v.SetDefault("log.file.enabled", false)
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	cfg.StateDir = ExpandPath(cfg.StateDir)
	applyLogDefaults(v, &cfg)

	profiles := make(map[string]domain.Profile, len(cfg.Profiles))
	for name, p := range cfg.Profiles {
		name = strings.ToLower(name)
		p.Name = name
		applyProfileDefaults(v, name, &p)
		profiles[name] = p
	}
	cfg.Profiles = profiles

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyLogDefaults(v *viper.Viper, cfg *Config) {
	defaults := logger.DefaultFileConfig(filepath.Join(cfg.StateDir, DefaultLogFile))

	f := &cfg.Log.File
	if f.Path == "" {
		f.Path = defaults.Path
	}
	f.Path = ExpandPath(f.Path)
	if !v.IsSet("log.file.max_size_mb") {
		f.MaxSizeMB = defaults.MaxSizeMB
	}
	if !v.IsSet("log.file.max_age_days") {
		f.MaxAgeDays = defaults.MaxAgeDays
	}
	if !v.IsSet("log.file.max_backups") {
		f.MaxBackups = defaults.MaxBackups
	}
	if !v.IsSet("log.file.compress") {
		f.Compress = defaults.Compress
	}
}

// applyProfileDefaults fills keys the profile leaves unset.
// An explicit zero threshold is kept.
func applyProfileDefaults(v *viper.Viper, name string, p *domain.Profile) {
	key := func(k string) string {
		return fmt.Sprintf("profiles.%s.%s", name, k)
	}

	if p.Transport == "" {
		p.Transport = domain.TransportSFTP
	}
	if !v.IsSet(key("port")) {
		p.Port = domain.DefaultPort
	}
	if !v.IsSet(key("move_threshold_days")) {
		p.MoveThresholdDays = domain.DefaultMoveThresholdDays
	}
	if !v.IsSet(key("delete_threshold_days")) {
		p.DeleteThresholdDays = domain.DefaultDeleteThresholdDays
	}
	if p.Schedule == "" {
		p.Schedule = domain.DefaultSchedule
	}
	if p.ConnectTimeout <= 0 {
		p.ConnectTimeout = domain.DefaultConnectTimeout
	}
	if !v.IsSet(key("max_depth")) {
		p.MaxDepth = domain.DefaultMaxDepth
	}

	// local paths only; remote folders are used verbatim
	if p.KeyFile != "" {
		p.KeyFile = ExpandPath(p.KeyFile)
	}
	if p.KnownHosts != "" {
		p.KnownHosts = ExpandPath(p.KnownHosts)
	}
}
