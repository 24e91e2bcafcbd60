// Package store is the SQLite implementation of the cotation repository.
package store

import (
	"database/sql"
	"strings"
	"time"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/cotation"
)

// Store reads trip graphs and persists cotations with raw SQL.
type Store struct {
	db *sql.DB
}

var _ cotation.Repository = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// parseDate reads an optional YYYY-MM-DD column. Empty means open.
func parseDate(ns sql.NullString) (time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, ns.String)
}

func nullInt64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
