package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect hides what differs between the supported engines. Repositories
// write every query with ? placeholders and let the dialect rebind it.
type Dialect interface {
	// Name is recorded in backups and names the migrations subdirectory.
	Name() string
	// Connect opens a tuned pool; target is a file path or a connection URL.
	Connect(target string) (*sql.DB, error)
	Rebind(query string) string
	// ReturningID reports whether inserts must use RETURNING id because the
	// driver has no LastInsertId.
	ReturningID() bool
	MigrationsTable() string
	// UpsertSuffix turns an INSERT into one that overwrites updateCols when a
	// row already exists for conflictCols.
	UpsertSuffix(conflictCols, updateCols []string) string
	// IgnoreSuffix turns an INSERT into a no-op, with zero rows affected, when
	// a row already exists for conflictCols. Other constraint errors still fail.
	IgnoreSuffix(conflictCols []string) string
}

// DialectFor maps a DB_TYPE value to its dialect.
func DialectFor(dbType string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(dbType)) {
	case "", "sqlite", "sqlite3":
		return SQLite{}, nil
	case "postgres", "postgresql":
		return Postgres{}, nil
	case "mysql", "mariadb":
		return MySQL{}, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %q", dbType)
	}
}

type poolLimits struct {
	maxOpen  int
	maxIdle  int
	lifetime time.Duration
}

func connect(driver, dsn string, limits poolLimits) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	db.SetMaxOpenConns(limits.maxOpen)
	db.SetMaxIdleConns(limits.maxIdle)
	db.SetConnMaxLifetime(limits.lifetime)
	db.SetConnMaxIdleTime(time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach %s database: %w", driver, err)
	}
	return db, nil
}

// numberPlaceholders rewrites ? to $1, $2, ... leaving quoted literals alone.
func numberPlaceholders(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	quoted := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			quoted = !quoted
		case c == '?' && !quoted:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func doNothing(conflictCols []string) string {
	return " ON CONFLICT (" + strings.Join(conflictCols, ", ") + ") DO NOTHING"
}

// excludedUpsert is the ON CONFLICT form shared by SQLite and PostgreSQL.
func excludedUpsert(conflictCols, updateCols []string) string {
	sets := make([]string, len(updateCols))
	for i, col := range updateCols {
		sets[i] = fmt.Sprintf("%s = excluded.%s", col, col)
	}
	return fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(conflictCols, ", "), strings.Join(sets, ", "))
}
