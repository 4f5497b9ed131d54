package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists records in the relational database.
type PostgresStore struct {
	pool rowQuerier
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("vault: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

func newPostgresStoreWithExec(exec rowQuerier) *PostgresStore {
	if exec == nil {
		panic("vault: exec required")
	}
	return &PostgresStore{pool: exec}
}

func (s *PostgresStore) Put(ctx context.Context, rec *Record) error {
	attachments, err := json.Marshal(rec.Attachments)
	if err != nil {
		return fmt.Errorf("vault: marshal attachments: %w", err)
	}

	query := `
		INSERT INTO vault_records (id, content, privacy_level, attachments, checksum, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.pool.Exec(ctx, query,
		rec.ID,
		rec.Content,
		rec.PrivacyLevel.String(),
		attachments,
		rec.Checksum,
		rec.CreatedAt,
	); err != nil {
		return fmt.Errorf("vault: insert record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	query := `
		SELECT id, content, privacy_level, attachments, checksum, created_at
		FROM vault_records
		WHERE id = $1
	`
	var (
		rec         Record
		level       string
		attachments []byte
	)
	if err := s.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.Content,
		&level,
		&attachments,
		&rec.Checksum,
		&rec.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("vault: select record: %w", err)
	}

	parsed, err := ParsePrivacyLevel(level)
	if err != nil {
		return nil, err
	}
	rec.PrivacyLevel = parsed
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &rec.Attachments); err != nil {
			return nil, fmt.Errorf("vault: unmarshal attachments: %w", err)
		}
	}
	return &rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM vault_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("vault: delete record: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
