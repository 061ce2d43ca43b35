package automation

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by Store lookups that find no matching record.
var ErrNotFound = errors.New("automation: record not found")

// CounterDelta is the atomic counter-update shape spec §4.5 requires
// ("atomic counter-update"): a run completion reports exactly one of
// success or failure alongside the shared run increment.
type CounterDelta struct {
	RunDelta     int64
	SuccessDelta int64
	FailureDelta int64
	LastRunAt    time.Time
	NextRunAt    *time.Time
	LastError    string
	LastErrorAt  *time.Time
}

// Store is the automation persistence interface. Its core operations are
// Upsert, ListByTenant, ApplyCounterDelta (atomic counter update) and
// CompareAndSetEnabled (the enable/disable toggle); it also carries Get and
// Delete for single records, SaveExecution/GetExecution for execution
// records, and DueAutomations for the scheduler's tick.
type Store interface {
	Upsert(ctx context.Context, a *Automation) error
	ListByTenant(ctx context.Context, tenantID string) ([]*Automation, error)
	Get(ctx context.Context, id string) (*Automation, error)
	Delete(ctx context.Context, id string) error
	CompareAndSetEnabled(ctx context.Context, id string, enabled bool) error
	ApplyCounterDelta(ctx context.Context, id string, delta CounterDelta) error

	SaveExecution(ctx context.Context, e *Execution) error
	GetExecution(ctx context.Context, id string) (*Execution, error)
	DueAutomations(ctx context.Context, now time.Time) ([]*Automation, error)
}

// InMemoryStore is a sync.RWMutex-protected map implementation of Store,
// grounded on internal/storage.InMemoryStore's same shape for workflow
// definitions — the default store for `cmd/workflow serve` and for tests.
type InMemoryStore struct {
	mu          sync.RWMutex
	automations map[string]*Automation
	executions  map[string]*Execution
}

// NewInMemoryStore constructs an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		automations: make(map[string]*Automation),
		executions:  make(map[string]*Execution),
	}
}

func (s *InMemoryStore) Upsert(_ context.Context, a *Automation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *a
	s.automations[a.ID] = &clone
	return nil
}

func (s *InMemoryStore) ListByTenant(_ context.Context, tenantID string) ([]*Automation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Automation, 0)
	for _, a := range s.automations {
		if tenantID == "" || a.TenantID == tenantID {
			clone := *a
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Automation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.automations[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.automations[id]; !ok {
		return ErrNotFound
	}
	delete(s.automations, id)
	return nil
}

func (s *InMemoryStore) CompareAndSetEnabled(_ context.Context, id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.automations[id]
	if !ok {
		return ErrNotFound
	}
	a.Enabled = enabled
	a.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) ApplyCounterDelta(_ context.Context, id string, delta CounterDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.automations[id]
	if !ok {
		return ErrNotFound
	}
	a.RunCount += delta.RunDelta
	a.SuccessCount += delta.SuccessDelta
	a.FailureCount += delta.FailureDelta
	if !delta.LastRunAt.IsZero() {
		lastRun := delta.LastRunAt
		a.LastRunAt = &lastRun
	}
	a.NextRunAt = delta.NextRunAt
	if delta.LastError != "" {
		a.LastError = delta.LastError
		a.LastErrorAt = delta.LastErrorAt
	}
	a.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) SaveExecution(_ context.Context, e *Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *e
	s.executions[e.ID] = &clone
	return nil
}

func (s *InMemoryStore) GetExecution(_ context.Context, id string) (*Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.executions[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *e
	return &clone, nil
}

// DueAutomations returns enabled automations whose nextRunAt has arrived,
// the predicate the scheduler's tick loop polls (spec §4.5: "scans enabled
// cron automations whose nextRunAt ≤ now and fires them").
func (s *InMemoryStore) DueAutomations(_ context.Context, now time.Time) ([]*Automation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	due := make([]*Automation, 0)
	for _, a := range s.automations {
		if !a.Enabled || a.Trigger.Kind != TriggerCron || a.NextRunAt == nil {
			continue
		}
		if !a.NextRunAt.After(now) {
			clone := *a
			due = append(due, &clone)
		}
	}
	return due, nil
}
