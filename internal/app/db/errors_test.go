package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUndefinedTable(t *testing.T) {
	missing := &pgconn.PgError{Code: "42P01"}

	assert.True(t, IsUndefinedTable(missing))
	assert.True(t, IsUndefinedTable(fmt.Errorf("load session: %w", missing)))
	assert.False(t, IsUndefinedTable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUndefinedTable(errors.New("boom")))
	assert.False(t, IsUndefinedTable(nil))
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := embedMigrations.ReadDir("migrations")
	assert.NoError(t, err)
	assert.NotEmpty(t, entries)

	body, err := embedMigrations.ReadFile("migrations/00001_sessions.sql")
	assert.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS sessions")
}
