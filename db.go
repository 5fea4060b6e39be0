// db.go
//
// Database helpers for the flipmatch server.
// Responsibilities:
//   - Opening the SQLite database with safe defaults (WAL, busy timeout,
//     foreign keys).
//   - Applying the embedded migrations (idempotent, recorded in _migrations).
//   - Seeding the default board preset from the image catalog.
//
// Only identity and presets live here. Per-game state is in-memory and
// scores are never persisted.

package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"flipmatch/internal/config"
	"flipmatch/internal/httpserver"
	"flipmatch/internal/images"
)

// migrations are applied in order; each name is recorded once in _migrations.
var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "001_users",
		sql: `CREATE TABLE IF NOT EXISTS users (
            id            TEXT PRIMARY KEY,
            username      TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            created_at    TEXT NOT NULL
        );`,
	},
	{
		name: "002_presets",
		sql: `CREATE TABLE IF NOT EXISTS presets (
            name       TEXT PRIMARY KEY,
            config     TEXT NOT NULL,
            created_at TEXT NOT NULL
        );`,
	},
}

// openDB opens (and creates if missing) the SQLite database file, ensuring
// the parent directory exists for relative paths like ./data/flipmatch.db.
func openDB(dsn string) (*sql.DB, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return db, nil
}

// migrate applies the embedded migrations that have not run yet.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}
	for _, m := range migrations {
		var done int
		err := db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, m.name).Scan(&done)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("query _migrations: %w", err)
		}
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", m.name, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, m.name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", m.name, err)
		}
		log.Info().Str("migration", m.name).Msg("applied")
	}
	return nil
}

// seedDefaultPreset installs the "classic" board built from the image catalog
// if no preset of that name exists yet.
func seedDefaultPreset(ctx context.Context, db *sql.DB) error {
	exists, err := httpserver.PresetExists(ctx, db, "classic")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	cfg := config.Game{
		CardWidth:          100,
		CardHeight:         100,
		CardSpacing:        10,
		CardsPerRow:        4,
		TimeLimitInMinutes: 3,
		ImageURLs:          images.List(),
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("default preset: %w", err)
	}
	if err := httpserver.SavePreset(ctx, db, "classic", cfg); err != nil {
		return err
	}
	log.Info().Int("pairs", cfg.PairCount()).Msg("seeded classic preset")
	return nil
}
