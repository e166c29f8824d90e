// Package repository implements the domain repository interfaces using
// SQLite.
package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"forecastd/internal/domain"
)

const dbTimeLayout = "2006-01-02 15:04:05"

func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound("resource not found")
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return domain.ErrConflict("resource already exists")
	}
	return err
}

func timeToDB(t time.Time) string {
	return t.UTC().Format(dbTimeLayout)
}

func timeFromDB(s string) time.Time {
	t, _ := time.Parse(dbTimeLayout, s)
	return t
}

func nullStrFromPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func strPtrFromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func timePtrFromNull(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := timeFromDB(ns.String)
	return &t
}
