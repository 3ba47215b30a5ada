package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/p42rthicle/shoku/internal/service"
)

var _ service.SettingsStore = (*FileSettings)(nil)

// FileSettings keeps user settings in a YAML file next to the config.
type FileSettings struct {
	mu   sync.Mutex
	path string
	v    *viper.Viper
}

func NewFileSettings(path string) (*FileSettings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings file: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat settings file: %w", err)
	}
	return &FileSettings{path: path, v: v}, nil
}

func (s *FileSettings) Get(_ context.Context, key string) (string, bool, error) {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return "", false, &service.ValidationError{Field: "config key", Reason: "is required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.v.IsSet(key) {
		return "", false, nil
	}
	return s.v.GetString(key), true, nil
}

// Set stores value and rewrites the whole file.
func (s *FileSettings) Set(_ context.Context, key, value string) error {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return &service.ValidationError{Field: "config key", Reason: "is required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(key, strings.TrimSpace(value))
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}

// OpenSettings returns the settings store selected by cfg.
func OpenSettings(cfg *Config, db *sql.DB) (service.SettingsStore, error) {
	if cfg.Settings.Backend == SettingsBackendFile {
		return NewFileSettings(cfg.Settings.File)
	}
	return service.NewSQLSettings(db), nil
}
