package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"uploadAI/core"
)

type PgVideoStore struct {
	pool *pgxpool.Pool
}

// NewPgVideoStore connects to postgres with exponential backoff so the service
// survives the database coming up after it does, then ensures the schema.
func NewPgVideoStore(ctx context.Context, dbURL string) (*PgVideoStore, error) {
	var pool *pgxpool.Pool

	connect := func() error {
		p, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("parse postgres url: %w", err))
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return fmt.Errorf("ping postgres: %w", err)
		}
		pool = p
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(connect, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	s := &PgVideoStore{pool: pool}
	if err := s.ensureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PgVideoStore) ensureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS videos (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			transcription TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure videos table: %w", err)
	}
	return nil
}

func (s *PgVideoStore) Create(ctx context.Context, v *core.Video) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO videos (id, name, path, transcription, created_at) VALUES ($1, $2, $3, $4, $5)`,
		v.ID, v.Name, v.Path, v.Transcription, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

func (s *PgVideoStore) Get(ctx context.Context, id string) (*core.Video, error) {
	var v core.Video
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, path, transcription, created_at FROM videos WHERE id = $1`, id).
		Scan(&v.ID, &v.Name, &v.Path, &v.Transcription, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrVideoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select video: %w", err)
	}
	return &v, nil
}

func (s *PgVideoStore) SetTranscription(ctx context.Context, id, text string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE videos SET transcription = $1 WHERE id = $2`, text, id)
	if err != nil {
		return fmt.Errorf("update transcription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrVideoNotFound
	}
	return nil
}

func (s *PgVideoStore) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}
