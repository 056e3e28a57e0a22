package database

import (
	"database/sql"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the default engine: a single file next to the server.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

// Connect sets pragmas through the DSN so every pooled connection gets them.
func (SQLite) Connect(path string) (*sql.DB, error) {
	params := url.Values{}
	params.Set("_loc", "UTC")
	params.Set("_foreign_keys", "1")
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", "5000")
	return connect("sqlite3", path+"?"+params.Encode(), poolLimits{maxOpen: 8, maxIdle: 4, lifetime: time.Hour})
}

func (SQLite) Rebind(query string) string { return query }

func (SQLite) ReturningID() bool { return false }

func (SQLite) MigrationsTable() string {
	return `CREATE TABLE IF NOT EXISTS migrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL UNIQUE,
		executed_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
}

func (SQLite) UpsertSuffix(conflictCols, updateCols []string) string {
	return excludedUpsert(conflictCols, updateCols)
}

func (SQLite) IgnoreSuffix(conflictCols []string) string { return doNothing(conflictCols) }
