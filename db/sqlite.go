package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"hum-search/models"
)

const createLookupsTable = `
CREATE TABLE IF NOT EXISTS lookups (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	kind       TEXT    NOT NULL,
	query      TEXT    NOT NULL DEFAULT '',
	title      TEXT    NOT NULL DEFAULT '',
	artist     TEXT    NOT NULL DEFAULT '',
	results    INTEGER NOT NULL DEFAULT 0,
	status     INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
)`

type SQLiteClient struct {
	db *sql.DB
}

func NewSQLiteClient(path string) (*SQLiteClient, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %v", err)
	}
	// one writer at a time keeps sqlite from returning SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createLookupsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create lookups table: %v", err)
	}
	return &SQLiteClient{db: db}, nil
}

func (c *SQLiteClient) RecordLookup(ctx context.Context, l models.Lookup) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO lookups (kind, query, title, artist, results, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.Kind, l.Query, l.Title, l.Artist, l.Results, l.Status, l.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record lookup: %v", err)
	}
	return nil
}

// RecentLookups returns up to limit entries, newest first.
func (c *SQLiteClient) RecentLookups(ctx context.Context, limit int) ([]models.Lookup, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT kind, query, title, artist, results, status, created_at FROM lookups ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query lookups: %v", err)
	}
	defer rows.Close()

	lookups := make([]models.Lookup, 0, limit)
	for rows.Next() {
		var l models.Lookup
		var createdAt int64
		if err := rows.Scan(&l.Kind, &l.Query, &l.Title, &l.Artist, &l.Results, &l.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan lookup: %v", err)
		}
		l.CreatedAt = time.UnixMilli(createdAt)
		lookups = append(lookups, l)
	}
	return lookups, rows.Err()
}

func (c *SQLiteClient) Close() error {
	return c.db.Close()
}
