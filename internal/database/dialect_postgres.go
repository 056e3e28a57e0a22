package database

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// Postgres is used for hosted deployments (DB_TYPE=postgres, DATABASE_URL).
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) Connect(url string) (*sql.DB, error) {
	return connect("postgres", url, poolLimits{maxOpen: 20, maxIdle: 5, lifetime: 30 * time.Minute})
}

func (Postgres) Rebind(query string) string { return numberPlaceholders(query) }

func (Postgres) ReturningID() bool { return true }

func (Postgres) MigrationsTable() string {
	return `CREATE TABLE IF NOT EXISTS migrations (
		id BIGSERIAL PRIMARY KEY,
		filename TEXT NOT NULL UNIQUE,
		executed_at TIMESTAMPTZ DEFAULT now()
	)`
}

func (Postgres) UpsertSuffix(conflictCols, updateCols []string) string {
	return excludedUpsert(conflictCols, updateCols)
}

func (Postgres) IgnoreSuffix(conflictCols []string) string { return doNothing(conflictCols) }
