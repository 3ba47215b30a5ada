package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/p42rthicle/shoku/internal/logging"
)

const (
	SettingsBackendDB   = "db"
	SettingsBackendFile = "file"
)

type Config struct {
	DBPath   string         `mapstructure:"db_path"`
	LogLevel string         `mapstructure:"log_level"`
	Suggest  SuggestConfig  `mapstructure:"suggest"`
	Settings SettingsConfig `mapstructure:"settings"`
}

type SuggestConfig struct {
	Debounce  time.Duration `mapstructure:"debounce"`
	MinLength int           `mapstructure:"min_length"`
	Limit     int           `mapstructure:"limit"`
}

type SettingsConfig struct {
	Backend string `mapstructure:"backend"`
	File    string `mapstructure:"file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("suggest.debounce", 300*time.Millisecond)
	v.SetDefault("suggest.min_length", 2)
	v.SetDefault("suggest.limit", 10)
	v.SetDefault("settings.backend", SettingsBackendDB)
	v.SetDefault("settings.file", "")
}

// LoadConfig reads config.yaml from path, or from the user config dir when path
// is empty, then applies SHOKU_* environment overrides (SHOKU_SUGGEST_DEBOUNCE
// for suggest.debounce). A missing default config file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
		if dir, err := ConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix("SHOKU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.fill(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) fill() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Suggest.Debounce < 0 {
		return fmt.Errorf("suggest.debounce must be >= 0")
	}
	if c.Suggest.MinLength < 0 {
		return fmt.Errorf("suggest.min_length must be >= 0")
	}
	if c.Suggest.Limit <= 0 {
		return fmt.Errorf("suggest.limit must be > 0")
	}

	c.Settings.Backend = strings.ToLower(strings.TrimSpace(c.Settings.Backend))
	switch c.Settings.Backend {
	case SettingsBackendDB:
	case SettingsBackendFile:
		if strings.TrimSpace(c.Settings.File) == "" {
			p, err := DefaultSettingsPath()
			if err != nil {
				return err
			}
			c.Settings.File = p
		}
	default:
		return fmt.Errorf("settings.backend must be %q or %q, got %q", SettingsBackendDB, SettingsBackendFile, c.Settings.Backend)
	}

	if strings.TrimSpace(c.DBPath) == "" {
		p, err := DefaultDBPath()
		if err != nil {
			return err
		}
		c.DBPath = p
	}
	return nil
}
