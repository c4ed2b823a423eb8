// Package store persists the wishlist, user settings, and lifetime counters in
// a single SQLite database file.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/solvant/claimant/internal/wishlist"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Totals are the lifetime counters kept across sessions.
type Totals struct {
	Rolled          uint64
	Claimed         uint64
	WishlistMatches uint64
	Kakera          uint64
	RollsExecuted   uint64
	UptimeSeconds   uint64
}

// DB wraps a single SQLite connection. The connection is not safe for
// concurrent use, so every method takes the mutex.
type DB struct {
	mu     sync.Mutex
	conn   *sqlite.Conn
	logger *zap.Logger
}

// Open creates or opens the database at path and applies the schema.
func Open(path string, logger *zap.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate|sqlite.OpenReadWrite)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, logger: logger.Named("store")}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.conn.Close()
}

func (db *DB) migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS wishlist (
			position     INTEGER PRIMARY KEY,
			name         TEXT NOT NULL,
			series       TEXT NOT NULL DEFAULT '',
			priority     INTEGER NOT NULL DEFAULT 0,
			notes        TEXT NOT NULL DEFAULT '',
			verified     INTEGER NOT NULL DEFAULT 0,
			kakera_value INTEGER NOT NULL DEFAULT 0,
			external_id  TEXT NOT NULL DEFAULT '',
			added_at     INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS totals (
			id               INTEGER PRIMARY KEY CHECK (id = 1),
			rolled           INTEGER NOT NULL DEFAULT 0,
			claimed          INTEGER NOT NULL DEFAULT 0,
			wishlist_matches INTEGER NOT NULL DEFAULT 0,
			kakera           INTEGER NOT NULL DEFAULT 0,
			rolls_executed   INTEGER NOT NULL DEFAULT 0,
			uptime_seconds   INTEGER NOT NULL DEFAULT 0
		)`,
		`INSERT OR IGNORE INTO totals (id) VALUES (1)`,
	}

	for _, stmt := range statements {
		if err := sqlitex.Execute(db.conn, stmt, nil); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return nil
}

// SaveWishlist replaces the stored wishlist with entries, preserving order via
// the position column.
func (db *DB) SaveWishlist(entries []wishlist.Entry) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := sqlitex.Execute(db.conn, "BEGIN TRANSACTION", nil); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := db.writeWishlist(entries); err != nil {
		// Best effort; the connection is unusable for this batch anyway.
		_ = sqlitex.Execute(db.conn, "ROLLBACK", nil)
		return err
	}

	if err := sqlitex.Execute(db.conn, "COMMIT", nil); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (db *DB) writeWishlist(entries []wishlist.Entry) error {
	if err := sqlitex.Execute(db.conn, "DELETE FROM wishlist", nil); err != nil {
		return fmt.Errorf("failed to clear wishlist: %w", err)
	}

	for i, e := range entries {
		err := sqlitex.Execute(db.conn,
			`INSERT INTO wishlist (position, name, series, priority, notes, verified, kakera_value, external_id, added_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{
				Args: []any{
					i, e.Name, e.Series, e.Priority, e.Notes,
					boolToInt(e.Verified), e.KakeraValue, e.ExternalID, e.AddedAt.Unix(),
				},
			})
		if err != nil {
			return fmt.Errorf("failed to insert wishlist entry: %w", err)
		}
	}

	return nil
}

// LoadWishlist returns the stored wishlist in insertion order.
func (db *DB) LoadWishlist() ([]wishlist.Entry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var entries []wishlist.Entry

	err := sqlitex.Execute(db.conn,
		`SELECT name, series, priority, notes, verified, kakera_value, external_id, added_at
		 FROM wishlist ORDER BY position`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entries = append(entries, wishlist.Entry{
					Name:        stmt.ColumnText(0),
					Series:      stmt.ColumnText(1),
					Priority:    int(stmt.ColumnInt64(2)),
					Notes:       stmt.ColumnText(3),
					Verified:    stmt.ColumnInt64(4) != 0,
					KakeraValue: int(stmt.ColumnInt64(5)),
					ExternalID:  stmt.ColumnText(6),
					AddedAt:     time.Unix(stmt.ColumnInt64(7), 0),
				})

				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("failed to load wishlist: %w", err)
	}

	return entries, nil
}

// SetSetting stores a key/value pair, replacing any previous value.
func (db *DB) SetSetting(key, value string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	err := sqlitex.Execute(db.conn,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		&sqlitex.ExecOptions{Args: []any{key, value}})
	if err != nil {
		return fmt.Errorf("failed to set setting %q: %w", key, err)
	}

	return nil
}

// GetSetting returns the stored value for key; ok is false when unset.
func (db *DB) GetSetting(key string) (value string, ok bool, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	err = sqlitex.Execute(db.conn,
		`SELECT value FROM settings WHERE key = ?`,
		&sqlitex.ExecOptions{
			Args: []any{key},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				value = stmt.ColumnText(0)
				ok = true

				return nil
			},
		})
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting %q: %w", key, err)
	}

	return value, ok, nil
}

// LoadTotals reads the lifetime counters.
func (db *DB) LoadTotals() (Totals, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var totals Totals

	err := sqlitex.Execute(db.conn,
		`SELECT rolled, claimed, wishlist_matches, kakera, rolls_executed, uptime_seconds
		 FROM totals WHERE id = 1`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				totals.Rolled = uint64(stmt.ColumnInt64(0))
				totals.Claimed = uint64(stmt.ColumnInt64(1))
				totals.WishlistMatches = uint64(stmt.ColumnInt64(2))
				totals.Kakera = uint64(stmt.ColumnInt64(3))
				totals.RollsExecuted = uint64(stmt.ColumnInt64(4))
				totals.UptimeSeconds = uint64(stmt.ColumnInt64(5))

				return nil
			},
		})
	if err != nil {
		return Totals{}, fmt.Errorf("failed to load totals: %w", err)
	}

	return totals, nil
}

// SaveTotals writes the lifetime counters.
func (db *DB) SaveTotals(totals Totals) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	err := sqlitex.Execute(db.conn,
		`UPDATE totals
		 SET rolled = ?, claimed = ?, wishlist_matches = ?, kakera = ?, rolls_executed = ?, uptime_seconds = ?
		 WHERE id = 1`,
		&sqlitex.ExecOptions{
			Args: []any{
				int64(totals.Rolled), int64(totals.Claimed), int64(totals.WishlistMatches),
				int64(totals.Kakera), int64(totals.RollsExecuted), int64(totals.UptimeSeconds),
			},
		})
	if err != nil {
		return fmt.Errorf("failed to save totals: %w", err)
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
