package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createJobRecordsTable = `CREATE TABLE IF NOT EXISTS job_records (
	exec_id TEXT NOT NULL,
	stage   TEXT NOT NULL,
	action  TEXT NOT NULL DEFAULT 'None',
	state   TEXT NOT NULL,
	started TIMESTAMPTZ NOT NULL,
	ended   TIMESTAMPTZ,
	PRIMARY KEY (exec_id, stage)
)`

// PostgresStore stores records in the job_records table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres establishes a connection pool to the database
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the job_records table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createJobRecordsTable); err != nil {
		return fmt.Errorf("failed to create job_records table: %w", err)
	}
	return nil
}

// Put implements Store. The row is replaced as a whole.
func (s *PostgresStore) Put(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO job_records (exec_id, stage, action, state, started, ended)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (exec_id, stage) DO UPDATE
		 SET action = EXCLUDED.action, state = EXCLUDED.state,
		     started = EXCLUDED.started, ended = EXCLUDED.ended`,
		rec.ExecID, rec.Stage, encodeAction(rec.Action), rec.State, rec.Started.UTC(), rec.Ended,
	)
	if err != nil {
		return &StoreError{Op: "put", Key: rec.Key(), Cause: err}
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, key Key) (*Record, error) {
	var rec Record
	var action string
	var ended *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT exec_id, stage, action, state, started, ended
		 FROM job_records WHERE exec_id = $1 AND stage = $2`,
		key.ExecID, key.Stage,
	).Scan(&rec.ExecID, &rec.Stage, &action, &rec.State, &rec.Started, &ended)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &StoreError{Op: "get", Key: key, Cause: err}
	}
	rec.Action = decodeAction(action)
	rec.Started = rec.Started.UTC()
	if ended != nil {
		utc := ended.UTC()
		rec.Ended = &utc
	}
	return &rec, nil
}

// ListByExecution implements Store.
func (s *PostgresStore) ListByExecution(ctx context.Context, execID string) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT exec_id, stage, action, state, started, ended
		 FROM job_records WHERE exec_id = $1
		 ORDER BY started, stage`,
		execID,
	)
	if err != nil {
		return nil, &StoreError{Op: "query", Key: Key{ExecID: execID}, Cause: err}
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var action string
		var ended *time.Time
		if err := rows.Scan(&rec.ExecID, &rec.Stage, &action, &rec.State, &rec.Started, &ended); err != nil {
			return nil, &StoreError{Op: "scan", Key: Key{ExecID: execID}, Cause: err}
		}
		rec.Action = decodeAction(action)
		rec.Started = rec.Started.UTC()
		if ended != nil {
			utc := ended.UTC()
			rec.Ended = &utc
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "query", Key: Key{ExecID: execID}, Cause: err}
	}
	return records, nil
}

var _ Store = (*PostgresStore)(nil)
