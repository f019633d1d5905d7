// Package journal persists the lifecycle of remote action activations so a
// mission run can be inspected after the fact.
package journal

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

type DB struct {
	SQL  *sql.DB
	Path string
}

// Entry is one recorded phase transition.
type Entry struct {
	ID        int64     `json:"id"`
	Node      string    `json:"node"`
	Server    string    `json:"server"`
	Phase     string    `json:"phase"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, err
	}
	// modernc SQLite creates new connections per goroutine unless capped;
	// keep it at 1 to avoid SQLITE_BUSY since we don't need parallel
	// writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		return nil, err
	}
	return &DB{SQL: db, Path: path}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS activations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		node TEXT NOT NULL,
		server TEXT,
		phase TEXT NOT NULL,
		status TEXT,
		created_at TIMESTAMP NOT NULL
	)`)
	return err
}

// Record appends one transition.
func (db *DB) Record(ctx context.Context, node, server, phase, status string) error {
	_, err := db.SQL.ExecContext(ctx,
		`INSERT INTO activations (node, server, phase, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		node, server, phase, status, time.Now().UTC())
	return err
}

// Recent returns the newest entries, most recent first.
func (db *DB) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.SQL.QueryContext(ctx,
		`SELECT id, node, COALESCE(server, ''), phase, COALESCE(status, ''), created_at
		 FROM activations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Node, &e.Server, &e.Phase, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (db *DB) Close() error {
	return db.SQL.Close()
}
