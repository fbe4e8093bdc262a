package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"rove/internal/pgdb"
	"rove/internal/telemetry"
)

// PostgresStore is the pgx-backed Store implementation.
type PostgresStore struct {
	db pgdb.DB
}

// NewPostgresStore builds a PostgresStore over db.
func NewPostgresStore(db pgdb.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, e Entry) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresStore.Upsert")
	defer span.End()

	query := `
		INSERT INTO pipeline_registry (
			name, num_leading, num_trailing, step_count, checksum, source_path, loaded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name) DO UPDATE SET
			num_leading  = EXCLUDED.num_leading,
			num_trailing = EXCLUDED.num_trailing,
			step_count   = EXCLUDED.step_count,
			checksum     = EXCLUDED.checksum,
			source_path  = EXCLUDED.source_path,
			loaded_at    = EXCLUDED.loaded_at
	`
	_, err := s.db.Exec(ctx, query,
		e.Name, e.NumLeading, e.NumTrailing, e.StepCount, e.Checksum, e.SourcePath, e.LoadedAt)
	if err != nil {
		return fmt.Errorf("upsert pipeline registry entry %q: %w", e.Name, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, name string) (Entry, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresStore.Get")
	defer span.End()

	query := `
		SELECT name, num_leading, num_trailing, step_count, checksum, source_path, loaded_at
		FROM pipeline_registry
		WHERE name = $1
	`
	var e Entry
	err := s.db.QueryRow(ctx, query, name).Scan(
		&e.Name, &e.NumLeading, &e.NumTrailing, &e.StepCount, &e.Checksum, &e.SourcePath, &e.LoadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("get pipeline registry entry %q: %w", name, err)
	}
	return e, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Entry, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresStore.List")
	defer span.End()

	query := `
		SELECT name, num_leading, num_trailing, step_count, checksum, source_path, loaded_at
		FROM pipeline_registry
		ORDER BY name
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pipeline registry: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.NumLeading, &e.NumTrailing, &e.StepCount, &e.Checksum, &e.SourcePath, &e.LoadedAt); err != nil {
			return nil, fmt.Errorf("scan pipeline registry row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pipeline registry rows: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) Delete(ctx context.Context, name string) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresStore.Delete")
	defer span.End()

	result, err := s.db.Exec(ctx, `DELETE FROM pipeline_registry WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete pipeline registry entry %q: %w", name, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
