package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"learnsprout/internal/database"
)

// List-valued columns are stored as JSON text so the same schema works on every dialect.

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(data), nil
}

func decodeList(raw string) []string {
	out := []string{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}
	}
	return out
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

func nullInt64(p *int64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullTime(p *time.Time) interface{} {
	if p == nil {
		return nil
	}
	return p.UTC()
}

// inTx runs fn in a transaction unless db already is one
func inTx(db database.DBTX, fn func(q database.DBTX) error) error {
	if d, ok := db.(*database.DB); ok {
		return d.WithTx(func(tx *database.Tx) error { return fn(tx) })
	}
	return fn(db)
}
