// Package postgres provides a PostgreSQL implementation of
// accounting.Recorder. It uses pgx/v5 for connection pooling.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/accounting"
)

// Recorder is a PostgreSQL-backed accounting recorder.
type Recorder struct {
	pool *pgxpool.Pool
}

var _ accounting.Recorder = (*Recorder)(nil)

// New creates a new PostgreSQL recorder with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Recorder, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	r := &Recorder{pool: pool}

	if cfg.MigrateOnStart {
		if err := r.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return r, nil
}

// Record inserts one usage record.
func (r *Recorder) Record(ctx context.Context, rec accounting.Record) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO usage_records (
			recorded_at, request_id, operation, source_model, target_model,
			prompt_tokens, completion_tokens, duration_ms, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.Time, rec.RequestID, rec.Operation, rec.SourceModel, rec.TargetModel,
		rec.PromptTokens, rec.CompletionTokens, rec.Duration.Milliseconds(), rec.Status,
	)
	if err != nil {
		return fmt.Errorf("inserting usage record: %w", err)
	}
	return nil
}

// HealthCheck verifies the database connection is functional.
func (r *Recorder) HealthCheck(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close releases database connections.
func (r *Recorder) Close() error {
	r.pool.Close()
	return nil
}
