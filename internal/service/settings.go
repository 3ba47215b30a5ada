package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/p42rthicle/shoku/internal/model"
)

const (
	SettingCalorieTarget = "calorie_target"
	SettingProteinTarget = "protein_target"

	DefaultCalorieTarget = 2000.0
	DefaultProteinTarget = 100.0
)

// SettingsStore is an opaque key-value store for user settings.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// SQLSettings keeps settings in the app_config table.
type SQLSettings struct {
	db *sql.DB
}

func NewSQLSettings(db *sql.DB) *SQLSettings {
	return &SQLSettings{db: db}
}

func (s *SQLSettings) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return invalid("config key", "is required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO app_config(key, value, updated_at)
VALUES(?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
`, key, strings.TrimSpace(value))
	if err != nil {
		return storageErr(fmt.Sprintf("set config %q", key), err)
	}
	return nil
}

func (s *SQLSettings) Get(ctx context.Context, key string) (string, bool, error) {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return "", false, invalid("config key", "is required")
	}
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageErr(fmt.Sprintf("get config %q", key), err)
	}
	return value, true, nil
}

func (s *SQLSettings) List(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM app_config ORDER BY key ASC`)
	if err != nil {
		return nil, storageErr("list config", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, storageErr("scan config", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate config", err)
	}
	return out, nil
}

// LoadTargets reads the daily targets, falling back to the defaults for unset keys.
func LoadTargets(ctx context.Context, store SettingsStore) (model.Targets, error) {
	calories, err := floatSetting(ctx, store, SettingCalorieTarget, DefaultCalorieTarget)
	if err != nil {
		return model.Targets{}, err
	}
	protein, err := floatSetting(ctx, store, SettingProteinTarget, DefaultProteinTarget)
	if err != nil {
		return model.Targets{}, err
	}
	return model.Targets{Calories: calories, ProteinG: protein}, nil
}

// SaveTarget stores a positive daily target under key.
func SaveTarget(ctx context.Context, store SettingsStore, key string, value float64) error {
	if err := validateNonNegativeFloat(key, value); err != nil {
		return err
	}
	if value <= 0 {
		return invalid(key, "must be > 0")
	}
	return store.Set(ctx, key, strconv.FormatFloat(value, 'f', -1, 64))
}

func floatSetting(ctx context.Context, store SettingsStore, key string, fallback float64) (float64, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", key, raw, err)
	}
	return v, nil
}
