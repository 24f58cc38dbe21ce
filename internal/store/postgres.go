package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stillpoint-app/stillpoint/internal/script"
)

// PostgresStore persists meditation records in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meditations (
			id TEXT PRIMARY KEY,
			spec JSONB NOT NULL,
			status TEXT NOT NULL DEFAULT 'draft',
			audio_url TEXT NOT NULL DEFAULT '',
			audio_filename TEXT NOT NULL DEFAULT '',
			failure_reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_meditations_created ON meditations (created_at DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if rec.Status == "" {
		rec.Status = StatusDraft
	}

	specJSON, err := json.Marshal(rec.Spec)
	if err != nil {
		return Record{}, fmt.Errorf("encode spec: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO meditations (id, spec, status, audio_url, audio_filename, failure_reason, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, specJSON, rec.Status, rec.AudioURL, rec.AudioFilename, rec.FailureReason, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return Record{}, fmt.Errorf("create meditation: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, spec, status, audio_url, audio_filename, failure_reason, created_at, updated_at
		 FROM meditations WHERE id=$1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get meditation: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, spec, status, audio_url, audio_filename, failure_reason, created_at, updated_at
		 FROM meditations ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list meditations: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meditation row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meditation rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, rec Record) (Record, error) {
	rec.UpdatedAt = time.Now().UTC()
	specJSON, err := json.Marshal(rec.Spec)
	if err != nil {
		return Record{}, fmt.Errorf("encode spec: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE meditations
		 SET spec=$2, status=$3, audio_url=$4, audio_filename=$5, failure_reason=$6, updated_at=$7
		 WHERE id=$1`,
		rec.ID, specJSON, rec.Status, rec.AudioURL, rec.AudioFilename, rec.FailureReason, rec.UpdatedAt,
	)
	if err != nil {
		return Record{}, fmt.Errorf("update meditation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM meditations WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete meditation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec      Record
		specJSON []byte
	)
	if err := row.Scan(&rec.ID, &specJSON, &rec.Status, &rec.AudioURL, &rec.AudioFilename, &rec.FailureReason, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	var spec script.MeditationSpec
	if err := json.Unmarshal(specJSON, &spec); err != nil {
		return Record{}, fmt.Errorf("decode spec: %w", err)
	}
	rec.Spec = spec
	return rec, nil
}
