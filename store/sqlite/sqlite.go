// Package sqlite keeps content tables in a SQLite database so that prompt
// packs can be imported once and loaded at startup.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jxucoder/truthordare/content"
	"github.com/jxucoder/truthordare/model"
)

// Store manages prompt persistence in SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS prompts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			mode       TEXT NOT NULL,
			type       TEXT NOT NULL,
			position   INTEGER NOT NULL,
			text       TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_prompts_mode_type
			ON prompts(mode, type, position);

		CREATE TABLE IF NOT EXISTS imports (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			source      TEXT NOT NULL DEFAULT '',
			prompts     INTEGER NOT NULL DEFAULT 0,
			imported_at DATETIME NOT NULL DEFAULT (datetime('now'))
		);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Import replaces the stored prompts with table and records the import.
// It returns the number of prompts written.
func (s *Store) Import(table content.Table, source string) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM prompts`); err != nil {
		return 0, fmt.Errorf("clearing prompts: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO prompts (mode, type, position, text, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	n := 0
	for _, m := range model.Modes() {
		for _, typ := range []model.EntryType{model.TypeTruth, model.TypeChallenge} {
			for i, text := range table.Lookup(m, typ) {
				if _, err := stmt.Exec(string(m), string(typ), i, text, now); err != nil {
					return 0, fmt.Errorf("inserting %s %s prompt: %w", m, typ, err)
				}
				n++
			}
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO imports (source, prompts, imported_at) VALUES (?, ?, ?)`,
		source, n, now,
	); err != nil {
		return 0, fmt.Errorf("recording import: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing import: %w", err)
	}
	return n, nil
}

// Load reads the stored prompts into an immutable content table. Modes
// without prompts get empty pools.
func (s *Store) Load() (content.Table, error) {
	rows, err := s.db.Query(
		`SELECT mode, type, text FROM prompts ORDER BY mode, type, position`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	table := make(content.Table, len(model.Modes()))
	for _, m := range model.Modes() {
		table[m] = content.Pool{}
	}
	for rows.Next() {
		var mode, typ, text string
		if err := rows.Scan(&mode, &typ, &text); err != nil {
			return nil, err
		}
		pool, ok := table[model.Mode(mode)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", content.ErrUnknownMode, mode)
		}
		switch model.EntryType(typ) {
		case model.TypeTruth:
			pool.Truths = append(pool.Truths, text)
		case model.TypeChallenge:
			pool.Challenges = append(pool.Challenges, text)
		default:
			return nil, fmt.Errorf("%w: %q", model.ErrInvalidEntryType, typ)
		}
		table[model.Mode(mode)] = pool
	}
	return table, rows.Err()
}

// ImportRecord describes a past content import.
type ImportRecord struct {
	ID         int64     `json:"id"`
	Source     string    `json:"source"`
	Prompts    int       `json:"prompts"`
	ImportedAt time.Time `json:"imported_at"`
}

// LastImport returns the most recent import, or sql.ErrNoRows if the
// database was never imported into.
func (s *Store) LastImport() (*ImportRecord, error) {
	rec := &ImportRecord{}
	err := s.db.QueryRow(
		`SELECT id, source, prompts, imported_at
		 FROM imports ORDER BY id DESC LIMIT 1`,
	).Scan(&rec.ID, &rec.Source, &rec.Prompts, &rec.ImportedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}
