// Package sqlite provides SQLite-backed draw persistence.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/secretsanta/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/secretsanta/internal/services/exchange/storage"
	"github.com/louisbranch/secretsanta/internal/services/exchange/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for completed draws.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.DrawStore = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a draw store at path and applies pending migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// PutDraw atomically persists a draw and its pairings.
func (s *Store) PutDraw(ctx context.Context, record storage.DrawRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("draw id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin draw write: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback draw write: %v", cause, rollbackErr)
		}
		return cause
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO draws (id, seed, attempts, created_at) VALUES (?, ?, ?, ?)`,
		record.ID, record.Seed, record.Attempts, toMillis(record.CreatedAt),
	); err != nil {
		return rollbackWith(fmt.Errorf("insert draw: %w", err))
	}
	for _, p := range record.Pairings {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO draw_pairings (draw_id, position, giver_name, giver_email, recipient_name, recipient_email)
VALUES (?, ?, ?, ?, ?, ?)`,
			record.ID, p.Position, p.GiverName, p.GiverEmail, p.RecipientName, p.RecipientEmail,
		); err != nil {
			return rollbackWith(fmt.Errorf("insert pairing %d: %w", p.Position, err))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit draw write: %w", err)
	}
	return nil
}

// GetDraw loads a draw with its pairings in roster order.
func (s *Store) GetDraw(ctx context.Context, id string) (storage.DrawRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.DrawRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.DrawRecord{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.DrawRecord{}, storage.ErrNotFound
	}

	var (
		record    storage.DrawRecord
		createdAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, seed, attempts, created_at FROM draws WHERE id = ?`, id,
	).Scan(&record.ID, &record.Seed, &record.Attempts, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.DrawRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.DrawRecord{}, fmt.Errorf("get draw: %w", err)
	}
	record.CreatedAt = fromMillis(createdAt)

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT position, giver_name, giver_email, recipient_name, recipient_email
FROM draw_pairings
WHERE draw_id = ?
ORDER BY position`, id)
	if err != nil {
		return storage.DrawRecord{}, fmt.Errorf("list pairings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p storage.PairingRecord
		if err := rows.Scan(&p.Position, &p.GiverName, &p.GiverEmail, &p.RecipientName, &p.RecipientEmail); err != nil {
			return storage.DrawRecord{}, fmt.Errorf("scan pairing: %w", err)
		}
		record.Pairings = append(record.Pairings, p)
	}
	if err := rows.Err(); err != nil {
		return storage.DrawRecord{}, fmt.Errorf("iterate pairings: %w", err)
	}
	return record, nil
}
