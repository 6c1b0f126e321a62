package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrNotFound is returned when a setting does not exist.
var ErrNotFound = errors.New("not found")

// Setting is one persisted tuning override.
type Setting struct {
	Key       string    `json:"key"`
	Value     float64   `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SettingsRepository reads and writes the settings table.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the setting for key or ErrNotFound.
func (r *SettingsRepository) Get(key string) (*Setting, error) {
	var (
		raw     string
		updated sql.NullTime
	)
	err := r.db.QueryRow(`SELECT value, updated_at FROM settings WHERE key = ?`, key).Scan(&raw, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get setting %s: %w", key, err)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("parse setting %s: %w", key, err)
	}
	return &Setting{Key: key, Value: v, UpdatedAt: updated.Time}, nil
}

// Set inserts or replaces the value for key.
func (r *SettingsRepository) Set(key string, value float64) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, strconv.FormatFloat(value, 'g', -1, 64), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// List returns every setting ordered by key.
func (r *SettingsRepository) List() ([]Setting, error) {
	rows, err := r.db.Query(`SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		var (
			s       Setting
			raw     string
			updated sql.NullTime
		)
		if err := rows.Scan(&s.Key, &raw, &updated); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		if s.Value, err = strconv.ParseFloat(raw, 64); err != nil {
			return nil, fmt.Errorf("parse setting %s: %w", s.Key, err)
		}
		s.UpdatedAt = updated.Time
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes the setting for key or returns ErrNotFound.
func (r *SettingsRepository) Delete(key string) error {
	res, err := r.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Map returns every setting keyed by name.
func (r *SettingsRepository) Map() (map[string]float64, error) {
	list, err := r.List()
	if err != nil {
		return nil, err
	}
	m := make(map[string]float64, len(list))
	for _, s := range list {
		m[s.Key] = s.Value
	}
	return m, nil
}
