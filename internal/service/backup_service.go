package service

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"learnsprout/internal/database"
	"learnsprout/internal/logger"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// BackupData represents the complete database backup structure. Rows are keyed by column name.
type BackupData struct {
	Version      string                              `json:"version"`
	ExportedAt   time.Time                           `json:"exported_at"`
	DatabaseType string                              `json:"database_type"`
	Tables       map[string][]map[string]interface{} `json:"tables"`
}

type backupTable struct {
	name    string
	columns []string
	serial  bool
}

// backupTables lists the tables in foreign key order. Sessions and reset tokens are not kept.
var backupTables = []backupTable{
	{name: "families", columns: []string{"id", "name", "owner_user_id", "created_at"}, serial: true},
	{name: "users", columns: []string{"id", "email", "password_hash", "name", "role", "oauth_provider", "oauth_subject",
		"preferences", "family_id", "created_at", "updated_at"}, serial: true},
	{name: "invitations", columns: []string{"id", "code", "family_id", "email", "invited_by", "expires_at", "used_at",
		"used_by", "created_at"}, serial: true},
	{name: "children", columns: []string{"id", "user_id", "family_id", "name", "birth_date", "interests", "notes", "active",
		"last_assessed_at", "created_at", "updated_at"}, serial: true},
	{name: "developmental_skills", columns: []string{"id", "name", "description", "area", "age_ranges"}},
	{name: "child_skills", columns: []string{"child_id", "skill_id", "status", "notes", "last_assessed"}},
	{name: "activities", columns: []string{"id", "title", "description", "instructions", "area", "skills_addressed",
		"materials_needed", "duration_minutes", "difficulty", "environment_type", "age_ranges", "prerequisites", "status",
		"created_at"}},
	{name: "materials", columns: []string{"id", "name", "normalized_name", "category", "household_alternative", "purchase_links"}},
	{name: "user_materials", columns: []string{"user_id", "material_id", "in_inventory", "updated_at"}},
	{name: "weekly_plans", columns: []string{"id", "child_id", "user_id", "week_start", "created_by", "created_at"}, serial: true},
	{name: "plan_activities", columns: []string{"id", "plan_id", "day", "activity_id", "time_slot", "status", "sort_order",
		"notes", "updated_at"}, serial: true},
	{name: "progress_records", columns: []string{"id", "child_id", "user_id", "activity_id", "observed_at", "completion_status",
		"engagement", "interest", "difficulty", "notes", "skills_demonstrated", "observation_type", "created_at"}},
	{name: "institutions", columns: []string{"id", "name", "type", "admin_user_id", "created_at"}, serial: true},
	{name: "classrooms", columns: []string{"id", "institution_id", "name", "educator_id", "age_group", "join_code",
		"created_at"}, serial: true},
	{name: "classroom_children", columns: []string{"classroom_id", "child_id"}},
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db  *database.DB
	log *logger.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, log *logger.Logger) *BackupService {
	return &BackupService{db: db, log: log.With("service", "BackupService")}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(file); err != nil {
		return err
	}
	s.log.Info("database exported", "path", outputPath)
	return nil
}

// ExportToWriter writes a complete backup as indented JSON
func (s *BackupService) ExportToWriter(w io.Writer) error {
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.Name(),
		Tables:       make(map[string][]map[string]interface{}, len(backupTables)),
	}

	for _, table := range backupTables {
		rows, err := s.exportTable(table)
		if err != nil {
			return fmt.Errorf("failed to export %s: %w", table.name, err)
		}
		backup.Tables[table.name] = rows
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	counts := make([]interface{}, 0, 2*len(backupTables))
	for _, table := range backupTables {
		counts = append(counts, table.name, len(backup.Tables[table.name]))
	}
	s.log.Info("export finished", counts...)
	return nil
}

func (s *BackupService) exportTable(table backupTable) ([]map[string]interface{}, error) {
	rows, err := s.db.Query("SELECT " + strings.Join(table.columns, ", ") + " FROM " + table.name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []map[string]interface{}{}
	for rows.Next() {
		values := make([]interface{}, len(table.columns))
		ptrs := make([]interface{}, len(values))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(values))
		for i, col := range table.columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Import restores a database from a backup file
func (s *BackupService) Import(inputPath string, replace bool) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()
	return s.ImportFromReader(file, replace)
}

// ImportFromReader restores a backup in one transaction. With replace, existing
// rows of every backed up table are deleted first.
func (s *BackupService) ImportFromReader(reader io.Reader, replace bool) error {
	var backup BackupData
	decoder := json.NewDecoder(reader)
	decoder.UseNumber()
	if err := decoder.Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}
	s.log.Info("importing backup", "version", backup.Version, "exported_at", backup.ExportedAt, "source", backup.DatabaseType)

	err := s.db.WithTx(func(tx *database.Tx) error {
		if replace {
			for i := len(backupTables) - 1; i >= 0; i-- {
				if _, err := tx.Exec("DELETE FROM " + backupTables[i].name); err != nil {
					return fmt.Errorf("failed to clear %s: %w", backupTables[i].name, err)
				}
			}
		}
		for _, table := range backupTables {
			if err := importTable(tx, table, backup.Tables[table.name]); err != nil {
				return fmt.Errorf("failed to import %s: %w", table.name, err)
			}
		}
		if tx.GetDialect().Name() == "postgres" {
			return resetSequences(tx)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("database import completed")
	return nil
}

func importTable(tx *database.Tx, table backupTable, rows []map[string]interface{}) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(table.columns)), ", ")
	query := "INSERT INTO " + table.name + " (" + strings.Join(table.columns, ", ") + ") VALUES (" + placeholders + ")"
	for _, row := range rows {
		args := make([]interface{}, len(table.columns))
		for i, col := range table.columns {
			args[i] = importValue(row[col])
		}
		if _, err := tx.Exec(query, args...); err != nil {
			return err
		}
	}
	return nil
}

// importValue converts decoded JSON back into driver values
func importValue(v interface{}) interface{} {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		f, _ := val.Float64()
		return f
	case string:
		if t, err := time.Parse(time.RFC3339Nano, val); err == nil {
			return t.UTC()
		}
		return val
	default:
		return val
	}
}

func resetSequences(tx *database.Tx) error {
	for _, table := range backupTables {
		if !table.serial {
			continue
		}
		query := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE(MAX(id), 0) + 1, false) FROM %s",
			table.name, table.name)
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to reset sequence for %s: %w", table.name, err)
		}
	}
	return nil
}
