package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store against a Postgres pool, grounded on
// Dutt23-agentic-orchestrator's common/db.DB pgxpool wrapper. It backs
// `cmd/workflow serve --store postgres` (SPEC_FULL §4.5) behind the same
// four-method-plus-execution interface the in-memory store satisfies, so
// callers never depend on the storage technology.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and verifies the schema-bearing tables
// exist; it does not run migrations, matching spec §4.5's stance that the
// store is "an external store described by a narrow interface" the core
// does not own schema details for.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("automation: connecting to postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("automation: pinging postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Upsert(ctx context.Context, a *Automation) error {
	trigger, err := json.Marshal(a.Trigger)
	if err != nil {
		return fmt.Errorf("automation: marshaling trigger: %w", err)
	}
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	_, err = s.pool.Exec(ctx, `
		INSERT INTO automations (
			id, tenant_id, name, trigger, workflow_id, enabled,
			run_count, success_count, failure_count,
			last_run_at, next_run_at, last_error, last_error_at,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id,
			name = EXCLUDED.name,
			trigger = EXCLUDED.trigger,
			workflow_id = EXCLUDED.workflow_id,
			enabled = EXCLUDED.enabled,
			run_count = EXCLUDED.run_count,
			success_count = EXCLUDED.success_count,
			failure_count = EXCLUDED.failure_count,
			last_run_at = EXCLUDED.last_run_at,
			next_run_at = EXCLUDED.next_run_at,
			last_error = EXCLUDED.last_error,
			last_error_at = EXCLUDED.last_error_at,
			updated_at = EXCLUDED.updated_at
	`, a.ID, a.TenantID, a.Name, trigger, a.WorkflowID, a.Enabled,
		a.RunCount, a.SuccessCount, a.FailureCount,
		a.LastRunAt, a.NextRunAt, a.LastError, a.LastErrorAt,
		a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("automation: upserting %s: %w", a.ID, err)
	}
	return nil
}

func (s *PostgresStore) scanAutomation(row pgx.Row) (*Automation, error) {
	var a Automation
	var trigger []byte
	if err := row.Scan(
		&a.ID, &a.TenantID, &a.Name, &trigger, &a.WorkflowID, &a.Enabled,
		&a.RunCount, &a.SuccessCount, &a.FailureCount,
		&a.LastRunAt, &a.NextRunAt, &a.LastError, &a.LastErrorAt,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("automation: scanning row: %w", err)
	}
	if err := json.Unmarshal(trigger, &a.Trigger); err != nil {
		return nil, fmt.Errorf("automation: unmarshaling trigger: %w", err)
	}
	return &a, nil
}

const automationColumns = `
	id, tenant_id, name, trigger, workflow_id, enabled,
	run_count, success_count, failure_count,
	last_run_at, next_run_at, last_error, last_error_at,
	created_at, updated_at
`

func (s *PostgresStore) Get(ctx context.Context, id string) (*Automation, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+automationColumns+` FROM automations WHERE id = $1`, id)
	return s.scanAutomation(row)
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID string) ([]*Automation, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+automationColumns+` FROM automations WHERE tenant_id = $1 OR $1 = ''`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("automation: listing by tenant: %w", err)
	}
	defer rows.Close()

	var out []*Automation
	for rows.Next() {
		a, err := s.scanAutomation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM automations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("automation: deleting %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CompareAndSetEnabled(ctx context.Context, id string, enabled bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE automations SET enabled = $2, updated_at = now() WHERE id = $1`, id, enabled)
	if err != nil {
		return fmt.Errorf("automation: setting enabled on %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ApplyCounterDelta(ctx context.Context, id string, delta CounterDelta) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE automations SET
			run_count = run_count + $2,
			success_count = success_count + $3,
			failure_count = failure_count + $4,
			last_run_at = COALESCE(NULLIF($5, '0001-01-01 00:00:00+00'::timestamptz), last_run_at),
			next_run_at = $6,
			last_error = CASE WHEN $7 = '' THEN last_error ELSE $7 END,
			last_error_at = CASE WHEN $7 = '' THEN last_error_at ELSE $8 END,
			updated_at = now()
		WHERE id = $1
	`, id, delta.RunDelta, delta.SuccessDelta, delta.FailureDelta,
		delta.LastRunAt, delta.NextRunAt, delta.LastError, delta.LastErrorAt)
	if err != nil {
		return fmt.Errorf("automation: applying counter delta to %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SaveExecution(ctx context.Context, e *Execution) error {
	result, err := json.Marshal(e.Result)
	if err != nil {
		return fmt.Errorf("automation: marshaling execution result: %w", err)
	}
	triggerData, err := json.Marshal(e.TriggerData)
	if err != nil {
		return fmt.Errorf("automation: marshaling trigger data: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO automation_executions (
			id, automation_id, status, trigger_data, result, error,
			started_at, completed_at, duration_ms
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			result = EXCLUDED.result,
			error = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at,
			duration_ms = EXCLUDED.duration_ms
	`, e.ID, e.AutomationID, e.Status, triggerData, result, e.Error,
		e.StartedAt, e.CompletedAt, e.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("automation: saving execution %s: %w", e.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetExecution(ctx context.Context, id string) (*Execution, error) {
	var e Execution
	var result, triggerData []byte
	var durationMS int64
	err := s.pool.QueryRow(ctx, `
		SELECT id, automation_id, status, trigger_data, result, error, started_at, completed_at, duration_ms
		FROM automation_executions WHERE id = $1
	`, id).Scan(&e.ID, &e.AutomationID, &e.Status, &triggerData, &result, &e.Error, &e.StartedAt, &e.CompletedAt, &durationMS)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("automation: fetching execution %s: %w", id, err)
	}
	e.Duration = time.Duration(durationMS) * time.Millisecond
	if len(result) > 0 {
		if err := json.Unmarshal(result, &e.Result); err != nil {
			return nil, fmt.Errorf("automation: unmarshaling execution result: %w", err)
		}
	}
	if len(triggerData) > 0 {
		if err := json.Unmarshal(triggerData, &e.TriggerData); err != nil {
			return nil, fmt.Errorf("automation: unmarshaling trigger data: %w", err)
		}
	}
	return &e, nil
}

func (s *PostgresStore) DueAutomations(ctx context.Context, now time.Time) ([]*Automation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+automationColumns+` FROM automations
		WHERE enabled AND trigger->>'kind' = 'cron' AND next_run_at IS NOT NULL AND next_run_at <= $1
	`, now)
	if err != nil {
		return nil, fmt.Errorf("automation: querying due automations: %w", err)
	}
	defer rows.Close()

	var out []*Automation
	for rows.Next() {
		a, err := s.scanAutomation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
