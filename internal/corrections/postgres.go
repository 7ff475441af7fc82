package corrections

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time interface check.
var _ Sink = (*PostgresSink)(nil)

const correctionsSchema = `
CREATE TABLE IF NOT EXISTS corrections (
	id                  BIGSERIAL PRIMARY KEY,
	original_hypothesis TEXT        NOT NULL,
	corrected_text      TEXT        NOT NULL,
	audio_ref           TEXT        NOT NULL,
	submitted_at        TIMESTAMPTZ NOT NULL,
	locale_hint         TEXT        NOT NULL DEFAULT ''
)`

const insertCorrection = `
INSERT INTO corrections (original_hypothesis, corrected_text, audio_ref, submitted_at, locale_hint)
VALUES ($1, $2, $3, $4, $5)`

// PostgresSink appends corrections to a PostgreSQL table. The table is
// insert-only; retraining jobs read it out of band.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink wraps an existing connection pool. The pool's lifecycle
// stays with the caller.
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

// Migrate creates the corrections table if it does not exist.
func (s *PostgresSink) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, correctionsSchema); err != nil {
		return fmt.Errorf("corrections: migrate: %w", err)
	}
	return nil
}

// Append inserts one record.
func (s *PostgresSink) Append(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx, insertCorrection,
		rec.OriginalHypothesis, rec.CorrectedText, rec.AudioRef, rec.SubmittedAt, rec.LocaleHint)
	if err != nil {
		return fmt.Errorf("corrections: insert: %w", err)
	}
	return nil
}
