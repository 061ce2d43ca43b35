package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store against a Postgres pool, grounded on
// automation.PostgresStore's connect/ping/query shape. It backs
// `cmd/workflow serve -store postgres` for workflow definitions the same
// way automation.PostgresStore backs automation records, so a deployment
// can run both off one database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and verifies the workflows table exists;
// it does not run migrations.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: connecting to postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: pinging postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Save(name, description string, data json.RawMessage) (string, error) {
	if name == "" {
		return "", fmt.Errorf("workflow name is required")
	}
	if len(data) == 0 {
		return "", fmt.Errorf("workflow data is required")
	}
	var temp interface{}
	if err := json.Unmarshal(data, &temp); err != nil {
		return "", fmt.Errorf("invalid workflow data: %w", err)
	}

	id := uuid.New().String()
	now := time.Now()
	ctx := context.Background()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO workflows (id, name, description, data, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, id, name, description, data, now, now)
	if err != nil {
		return "", fmt.Errorf("storage: saving workflow: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) Update(id, name, description string, data json.RawMessage) error {
	if id == "" {
		return fmt.Errorf("workflow ID is required")
	}
	if name == "" {
		return fmt.Errorf("workflow name is required")
	}
	if len(data) == 0 {
		return fmt.Errorf("workflow data is required")
	}
	var temp interface{}
	if err := json.Unmarshal(data, &temp); err != nil {
		return fmt.Errorf("invalid workflow data: %w", err)
	}

	ctx := context.Background()
	tag, err := s.pool.Exec(ctx, `
		UPDATE workflows SET name = $2, description = $3, data = $4, updated_at = $5
		WHERE id = $1
	`, id, name, description, data, time.Now())
	if err != nil {
		return fmt.Errorf("storage: updating workflow %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workflow with ID %s not found", id)
	}
	return nil
}

func (s *PostgresStore) Load(id string) (*Workflow, error) {
	if id == "" {
		return nil, fmt.Errorf("workflow ID is required")
	}
	ctx := context.Background()
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, description, data, created_at, updated_at FROM workflows WHERE id = $1
	`, id)

	var wf Workflow
	if err := row.Scan(&wf.ID, &wf.Name, &wf.Description, &wf.Data, &wf.CreatedAt, &wf.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("workflow with ID %s not found", id)
		}
		return nil, fmt.Errorf("storage: loading workflow %s: %w", id, err)
	}
	return &wf, nil
}

func (s *PostgresStore) Delete(id string) error {
	if id == "" {
		return fmt.Errorf("workflow ID is required")
	}
	ctx := context.Background()
	tag, err := s.pool.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("storage: deleting workflow %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workflow with ID %s not found", id)
	}
	return nil
}

func (s *PostgresStore) List() []WorkflowSummary {
	ctx := context.Background()
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, created_at, updated_at FROM workflows ORDER BY created_at
	`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []WorkflowSummary
	for rows.Next() {
		var s WorkflowSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil
		}
		out = append(out, s)
	}
	return out
}

func (s *PostgresStore) Exists(id string) bool {
	ctx := context.Background()
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM workflows WHERE id = $1)`, id).Scan(&exists)
	return err == nil && exists
}
