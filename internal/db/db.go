package db

import (
	"database/sql"
	"fmt"

	"whr-rank/internal/logger"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite game archive.
type DB struct {
	sql *sql.DB
}

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("Opened %s", path))
	return d, nil
}

// OpenInMemory opens a private in-memory database, used by tests and
// throwaway fits.
func OpenInMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open in-memory db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate() error {
	version := 0
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS config (
				key   TEXT PRIMARY KEY,
				value TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS games (
				id        INTEGER PRIMARY KEY AUTOINCREMENT,
				black     TEXT NOT NULL,
				white     TEXT NOT NULL,
				winner    TEXT NOT NULL,
				time_step INTEGER NOT NULL,
				handicap  REAL NOT NULL DEFAULT 0
			);
			CREATE INDEX IF NOT EXISTS idx_games_step ON games(time_step);

			CREATE TABLE IF NOT EXISTS fit_runs (
				id             TEXT PRIMARY KEY,
				created_at     TEXT NOT NULL,
				w2             REAL NOT NULL,
				virtual_games  INTEGER NOT NULL,
				sweeps         INTEGER NOT NULL,
				game_count     INTEGER NOT NULL,
				log_likelihood REAL NOT NULL
			);

			CREATE TABLE IF NOT EXISTS ratings (
				run_id     TEXT NOT NULL REFERENCES fit_runs(id),
				player     TEXT NOT NULL,
				time_step  INTEGER NOT NULL,
				elo        REAL NOT NULL,
				stddev_elo REAL NOT NULL,
				PRIMARY KEY (run_id, player, time_step)
			);
			CREATE INDEX IF NOT EXISTS idx_ratings_player ON ratings(player);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("DB", "Applied migration v1")
	}
	return nil
}
