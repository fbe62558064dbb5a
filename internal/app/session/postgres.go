package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of *pgxpool.Pool used by PostgresStore.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	loadSessionSQL = `SELECT username, expires_at FROM sessions WHERE id = $1 AND expires_at > now()`

	saveSessionSQL = `INSERT INTO sessions (id, username, expires_at, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, expires_at = EXCLUDED.expires_at, updated_at = now()`

	deleteSessionSQL = `DELETE FROM sessions WHERE id = $1`

	deleteExpiredSQL = `DELETE FROM sessions WHERE expires_at <= now()`
)

// PostgresStore persists sessions in the "sessions" table created by the
// migrations in internal/app/db.
type PostgresStore struct {
	db Querier
}

// NewPostgresStore returns a store backed by db.
func NewPostgresStore(db Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// Load implements Store.
func (p *PostgresStore) Load(ctx context.Context, id string) (Record, error) {
	var rec Record
	err := p.db.QueryRow(ctx, loadSessionSQL, id).Scan(&rec.Username, &rec.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load session: %w", err)
	}
	return rec, nil
}

// Save implements Store.
func (p *PostgresStore) Save(ctx context.Context, id string, rec Record) error {
	if _, err := p.db.Exec(ctx, saveSessionSQL, id, rec.Username, rec.ExpiresAt.UTC()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete implements Store.
func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := p.db.Exec(ctx, deleteSessionSQL, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes expired rows and returns how many were deleted.
func (p *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := p.db.Exec(ctx, deleteExpiredSQL)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RunJanitor deletes expired rows every interval until ctx is done.
func (p *PostgresStore) RunJanitor(ctx context.Context, interval time.Duration, onErr func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.DeleteExpired(ctx); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}
