// Package database opens the configured SQL engine and applies the embedded
// schema migrations.
package database

import (
	"database/sql"
	"fmt"
	"strings"

	"learnsprout/internal/config"
)

// DB is a connection pool that rebinds ? placeholders for its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Initialize opens a migrated SQLite database at path. Tests and tools use it.
func Initialize(path string) (*DB, error) {
	db, err := Open(SQLite{}, path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitializeWithConfig connects to the engine named by DB_TYPE without migrating.
func InitializeWithConfig(cfg *config.Config) (*DB, error) {
	dialect, err := DialectFor(cfg.DatabaseType)
	if err != nil {
		return nil, err
	}
	target := cfg.DatabaseURL
	if _, ok := dialect.(SQLite); ok {
		target = cfg.DatabasePath
	}
	return Open(dialect, target)
}

// Open connects with dialect to target.
func Open(dialect Dialect, target string) (*DB, error) {
	if strings.TrimSpace(target) == "" {
		return nil, fmt.Errorf("no %s database configured", dialect.Name())
	}
	pool, err := dialect.Connect(target)
	if err != nil {
		return nil, err
	}
	return &DB{DB: pool, Dialect: dialect}, nil
}

func (db *DB) GetDialect() Dialect { return db.Dialect }

func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.DB.Query(db.Dialect.Rebind(query), args...)
}

func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.DB.QueryRow(db.Dialect.Rebind(query), args...)
}

func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.DB.Exec(db.Dialect.Rebind(query), args...)
}

// ExecReturningID runs an INSERT and returns the generated id.
func (db *DB) ExecReturningID(query string, args ...interface{}) (int64, error) {
	return insertID(db.DB, db.Dialect, query, args)
}

// rawConn is satisfied by both *sql.DB and *sql.Tx.
type rawConn interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

func insertID(conn rawConn, dialect Dialect, query string, args []interface{}) (int64, error) {
	query = dialect.Rebind(query)
	if !dialect.ReturningID() {
		res, err := conn.Exec(query, args...)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}

	var id int64
	query = strings.TrimRight(strings.TrimSpace(query), ";") + " RETURNING id"
	if err := conn.QueryRow(query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
