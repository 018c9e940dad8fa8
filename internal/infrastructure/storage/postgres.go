package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"factsheetgen/internal/domain"
	"factsheetgen/internal/ports"
)

// PostgresRepository keeps an audit trail of generated factsheets for
// history and deduplication. Optional: a nil db disables it.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.FactsheetRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Open connects to Postgres using the lib/pq driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

// AlreadyGenerated reports whether a factsheet record exists for the URL.
func (r *PostgresRepository) AlreadyGenerated(ctx context.Context, sourceURL string) (bool, error) {
	if r.db == nil {
		return false, nil
	}

	query, args, err := r.builder.
		Select("1").
		From("generated_factsheets").
		Where(sq.Eq{"source_url": sourceURL}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query generated: %w", err)
	}
	return true, nil
}

// SaveGenerated upserts the generated-factsheet record.
func (r *PostgresRepository) SaveGenerated(ctx context.Context, result domain.FactsheetResult, filename string) error {
	if r.db == nil {
		return nil
	}

	query, args, err := r.builder.
		Insert("generated_factsheets").
		Columns("source_url", "filename", "model", "word_count", "generated_at").
		Values(result.SourceURL, filename, result.ModelIdentifier, result.WordCount, result.GeneratedAt).
		Suffix(`ON CONFLICT (source_url) DO UPDATE
                SET filename = EXCLUDED.filename,
                    model = EXCLUDED.model,
                    word_count = EXCLUDED.word_count,
                    generated_at = EXCLUDED.generated_at,
                    updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert generated: %w", err)
	}
	return nil
}
