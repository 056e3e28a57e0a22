package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQL also covers MariaDB.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

// Connect forces parseTime and UTC so DATETIME columns scan into time.Time.
func (MySQL) Connect(dsn string) (*sql.DB, error) {
	cfg, err := mysqlConfig(dsn)
	if err != nil {
		return nil, err
	}
	return connect("mysql", cfg.FormatDSN(), poolLimits{maxOpen: 20, maxIdle: 5, lifetime: 5 * time.Minute})
}

func mysqlConfig(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(strings.TrimPrefix(dsn, "mysql://"))
	if err != nil {
		return nil, fmt.Errorf("invalid mysql DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg, nil
}

func (MySQL) Rebind(query string) string { return query }

func (MySQL) ReturningID() bool { return false }

func (MySQL) MigrationsTable() string {
	return `CREATE TABLE IF NOT EXISTS migrations (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		filename VARCHAR(255) NOT NULL UNIQUE,
		executed_at DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6)
	)`
}

func (MySQL) UpsertSuffix(_, updateCols []string) string {
	sets := make([]string, len(updateCols))
	for i, col := range updateCols {
		sets[i] = fmt.Sprintf("%s = VALUES(%s)", col, col)
	}
	return " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
}

// IgnoreSuffix assigns a key column to itself, which MySQL reports as zero
// rows affected. INSERT IGNORE would also swallow foreign key failures.
func (MySQL) IgnoreSuffix(conflictCols []string) string {
	return fmt.Sprintf(" ON DUPLICATE KEY UPDATE %s = %s", conflictCols[0], conflictCols[0])
}
