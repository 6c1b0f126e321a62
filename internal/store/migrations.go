package store

import "fmt"

// migrations run in order on every open. Each must be idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	)`,
}

// runMigrations applies the schema and the column additions recorded in
// schema_version.
func (s *Store) runMigrations() error {
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}

	var version int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	upgrades := []string{
		`ALTER TABLE settings ADD COLUMN updated_at DATETIME`,
	}
	for i := version; i < len(upgrades); i++ {
		if _, err := s.db.Exec(upgrades[i]); err != nil {
			return fmt.Errorf("upgrade %d: %w", i+1, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("record upgrade %d: %w", i+1, err)
		}
	}
	return nil
}
