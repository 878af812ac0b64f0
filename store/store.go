// Package store persists feature tables in a SQLite database, so training
// can be rerun without re-extracting.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/pokewin/pokewin/table"
)

var ErrNoTable = errors.New("no such feature table")

const schema = `
	CREATE TABLE IF NOT EXISTS feature_tables (
		name TEXT PRIMARY KEY,
		columns TEXT NOT NULL,
		has_label INTEGER NOT NULL,
		saved_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS feature_rows (
		table_name TEXT NOT NULL,
		row_idx INTEGER NOT NULL,
		battle_id TEXT NOT NULL,
		label INTEGER NOT NULL,
		payload BLOB NOT NULL,
		PRIMARY KEY (table_name, row_idx)
	);
`

// Store is a handle on one database file.
type Store struct {
	db *sql.DB
	// attempts bounds the retries of a write that finds the database busy.
	attempts uint
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db, attempts: 5}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// SaveTable replaces the named table in one transaction. The write is
// retried with backoff while another connection holds the database.
func (s *Store) SaveTable(ctx context.Context, name string, t *table.Table) error {
	cols, err := json.Marshal(t.Columns)
	if err != nil {
		return err
	}
	return retry.Do(
		func() error { return s.saveTable(ctx, name, string(cols), t) },
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(50*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(isBusy),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			log.Debug().Err(err).Uint("n", n).Str("table", name).Msg("database-busy-try-again")
			return retry.BackOffDelay(n, err, config)
		}),
	)
}

func (s *Store) saveTable(ctx context.Context, name, cols string, t *table.Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM feature_rows WHERE table_name = ?`, name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO feature_tables (name, columns, has_label, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			columns = excluded.columns,
			has_label = excluded.has_label,
			saved_at = excluded.saved_at
	`, name, cols, t.HasLabel, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO feature_rows (table_name, row_idx, battle_id, label, payload)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare feature_rows statement: %w", err)
	}
	defer stmt.Close()

	var buf bytes.Buffer
	for i, r := range t.Rows {
		buf.Reset()
		if err := binary.Write(&buf, binary.LittleEndian, r.Values); err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, name, i, r.BattleID, r.Label, buf.Bytes()); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Debug().Str("table", name).Int("rows", len(t.Rows)).Msg("saved-feature-table")
	return nil
}

// LoadTable reads a table saved by SaveTable.
func (s *Store) LoadTable(ctx context.Context, name string) (*table.Table, error) {
	var cols string
	var hasLabel bool
	err := s.db.QueryRowContext(ctx,
		`SELECT columns, has_label FROM feature_tables WHERE name = ?`, name).Scan(&cols, &hasLabel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNoTable, name)
	}
	if err != nil {
		return nil, err
	}
	t := &table.Table{HasLabel: hasLabel}
	if err := json.Unmarshal([]byte(cols), &t.Columns); err != nil {
		return nil, fmt.Errorf("table %s: bad column list: %w", name, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT battle_id, label, payload FROM feature_rows
		WHERE table_name = ? ORDER BY row_idx`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var r table.Row
		var payload []byte
		if err := rows.Scan(&r.BattleID, &r.Label, &payload); err != nil {
			return nil, err
		}
		if len(payload) != 8*len(t.Columns) {
			return nil, fmt.Errorf("table %s, battle %s: payload has %d bytes, want %d",
				name, r.BattleID, len(payload), 8*len(t.Columns))
		}
		r.Values = make([]float64, len(t.Columns))
		if err := binary.Read(bytes.NewReader(payload), binary.LittleEndian, r.Values); err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, r)
	}
	return t, rows.Err()
}

// Tables lists the saved table names, sorted.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM feature_tables ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
