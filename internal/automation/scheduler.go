package automation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowkit/engine/internal/ast"
	"github.com/flowkit/engine/internal/telemetry"
)

// DefaultTickInterval is the scheduler's polling cadence when
// Options.TickInterval is zero; `workflow serve` also uses it as the default
// of its -scheduler-tick-interval flag.
const DefaultTickInterval = 30 * time.Second

// WorkflowRunner is the subset of Engine the scheduler depends on, letting
// tests substitute a stub without pulling in the full execution engine.
type WorkflowRunner interface {
	Execute(ctx context.Context, wf *ast.Workflow, overrides map[string]interface{}) (ExecutionResult, error)
}

// ExecutionResult is the projection of engine.Result the scheduler needs:
// final state (stored as the execution's result) and nothing else, so this
// package doesn't import internal/engine's Result type directly.
type ExecutionResult struct {
	State map[string]interface{}
}

// WorkflowLoader resolves an automation's workflow reference to a parsed
// definition; the scheduler is decoupled from how workflows are stored
// (internal/storage, a file, a remote registry).
type WorkflowLoader interface {
	Load(ctx context.Context, workflowID string) (*ast.Workflow, error)
}

// Scheduler owns the lifecycle of automations (spec §4.5): create/update/
// delete, enable/disable, executeNow, and a background tick loop. Grounded
// on stherrien-gorax's internal/schedule.Scheduler Start/Stop/run shape,
// simplified by dropping the overlap-policy/terminator machinery the spec
// does not require (automations here only track a single RunningExecutionID
// conceptually through the store; overlapping fires are not specified as
// an invariant to defend against, so the teacher's semaphore-guarded
// concurrent-execution shape is kept but without its terminate path).
type Scheduler struct {
	store     Store
	loader    WorkflowLoader
	runner    WorkflowRunner
	logger    *slog.Logger
	telemetry *telemetry.Provider
	interval  time.Duration
	batch     int

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
	stopCh  chan struct{}
}

// Options configures a Scheduler. Zero values fall back to spec defaults.
type Options struct {
	TickInterval time.Duration
	BatchSize    int
	Logger       *slog.Logger

	// Telemetry, when set, records a metric for every automation-triggered
	// execution (runOnce/finishFailed). Nil disables recording.
	Telemetry *telemetry.Provider
}

// New constructs a Scheduler bound to store, loader, and runner.
func New(store Store, loader WorkflowLoader, runner WorkflowRunner, opts Options) *Scheduler {
	interval := opts.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 100
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:     store,
		loader:    loader,
		runner:    runner,
		logger:    logger,
		telemetry: opts.Telemetry,
		interval:  interval,
		batch:     batch,
		stopCh:    make(chan struct{}),
	}
}

// Create persists a new automation and, for cron triggers, computes its
// initial nextRunAt from createdAt (spec §4.5).
func (s *Scheduler) Create(ctx context.Context, a *Automation) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Trigger.Kind == TriggerCron {
		next, err := firstFireAfter(now, a.Trigger.CronExpression, a.Trigger.Timezone)
		if err != nil {
			return err
		}
		a.NextRunAt = &next
	}
	return s.store.Upsert(ctx, a)
}

// Update replaces an automation's mutable fields: trigger reconfiguration
// recomputes nextRunAt, matching spec §3's lifecycle rule that automation
// mutability is restricted to enable/disable, trigger reconfiguration, and
// counters.
func (s *Scheduler) Update(ctx context.Context, a *Automation) error {
	a.UpdatedAt = time.Now()
	if a.Trigger.Kind == TriggerCron {
		base := a.UpdatedAt
		if a.LastRunAt != nil {
			base = *a.LastRunAt
		}
		next, err := firstFireAfter(base, a.Trigger.CronExpression, a.Trigger.Timezone)
		if err != nil {
			return err
		}
		a.NextRunAt = &next
	}
	return s.store.Upsert(ctx, a)
}

// Delete removes an automation permanently.
func (s *Scheduler) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Get returns a single automation by id.
func (s *Scheduler) Get(ctx context.Context, id string) (*Automation, error) {
	return s.store.Get(ctx, id)
}

// ListByTenant returns all automations for tenantID (or all automations
// when tenantID is empty), for the administrative interface (spec §6).
func (s *Scheduler) ListByTenant(ctx context.Context, tenantID string) ([]*Automation, error) {
	return s.store.ListByTenant(ctx, tenantID)
}

// Enable toggles an automation on; a disabled automation is not considered
// by tick (spec §4.5).
func (s *Scheduler) Enable(ctx context.Context, id string) error {
	return s.store.CompareAndSetEnabled(ctx, id, true)
}

// Disable toggles an automation off.
func (s *Scheduler) Disable(ctx context.Context, id string) error {
	return s.store.CompareAndSetEnabled(ctx, id, false)
}

// ExecuteNow is the synchronous trigger spec §4.5 names: "executeNow
// (automationId, payload?) — synchronous trigger bypassing the schedule."
// It is also what webhook triggers reduce to (spec §4.5: "Webhook triggers
// are delivered by the host HTTP layer calling executeNow with the inbound
// payload as triggerData").
func (s *Scheduler) ExecuteNow(ctx context.Context, automationID string, payload map[string]interface{}) (*Execution, error) {
	a, err := s.store.Get(ctx, automationID)
	if err != nil {
		return nil, err
	}
	return s.runOnce(ctx, a, payload)
}

// Tick scans enabled cron automations whose nextRunAt ≤ now and fires them
// (spec §4.5); exported so both the background loop and tests can drive a
// single pass deterministically.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	due, err := s.store.DueAutomations(ctx, now)
	if err != nil {
		s.logger.Error("automation: listing due automations failed", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}
	if len(due) > s.batch {
		due = due[:s.batch]
	}

	semaphore := make(chan struct{}, 10)
	var wg sync.WaitGroup
	for _, a := range due {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(a *Automation) {
			defer wg.Done()
			defer func() { <-semaphore }()
			if _, err := s.runOnce(ctx, a, nil); err != nil {
				s.logger.Error("automation: scheduled run failed", "automation", a.ID, "error", err)
			}
		}(a)
	}
	wg.Wait()
}

// runOnce implements the four-step run protocol from spec §4.5: persist a
// pending execution, transition to running and invoke the engine, then
// record completed/failed outcomes and recompute nextRunAt regardless of
// success (spec §7: "a single failure does not disable the automation").
func (s *Scheduler) runOnce(ctx context.Context, a *Automation, payload map[string]interface{}) (*Execution, error) {
	exec := &Execution{
		ID:           uuid.NewString(),
		AutomationID: a.ID,
		Status:       ExecutionPending,
		TriggerData:  payload,
		StartedAt:    time.Now(),
	}
	if err := s.store.SaveExecution(ctx, exec); err != nil {
		return nil, err
	}

	exec.Status = ExecutionRunning
	if err := s.store.SaveExecution(ctx, exec); err != nil {
		return nil, err
	}

	wf, err := s.loader.Load(ctx, a.WorkflowID)
	if err != nil {
		return s.finishFailed(ctx, a, exec, err)
	}

	result, err := s.runner.Execute(ctx, wf, payload)
	if err != nil {
		return s.finishFailed(ctx, a, exec, err)
	}

	completed := time.Now()
	exec.Status = ExecutionCompleted
	exec.Result = result.State
	exec.CompletedAt = &completed
	exec.Duration = completed.Sub(exec.StartedAt)
	if err := s.store.SaveExecution(ctx, exec); err != nil {
		return nil, err
	}

	next := s.nextRunAt(a, completed)
	if err := s.store.ApplyCounterDelta(ctx, a.ID, CounterDelta{
		RunDelta:     1,
		SuccessDelta: 1,
		LastRunAt:    completed,
		NextRunAt:    next,
	}); err != nil {
		return nil, err
	}
	if s.telemetry != nil {
		s.telemetry.RecordAutomationExecution(ctx, a.ID, exec.Duration, true)
	}
	return exec, nil
}

func (s *Scheduler) finishFailed(ctx context.Context, a *Automation, exec *Execution, runErr error) (*Execution, error) {
	completed := time.Now()
	exec.Status = ExecutionFailed
	exec.Error = runErr.Error()
	exec.CompletedAt = &completed
	exec.Duration = completed.Sub(exec.StartedAt)
	if err := s.store.SaveExecution(ctx, exec); err != nil {
		return nil, err
	}

	next := s.nextRunAt(a, completed)
	if err := s.store.ApplyCounterDelta(ctx, a.ID, CounterDelta{
		RunDelta:     1,
		FailureDelta: 1,
		LastRunAt:    completed,
		NextRunAt:    next,
		LastError:    runErr.Error(),
		LastErrorAt:  &completed,
	}); err != nil {
		return nil, err
	}
	if s.telemetry != nil {
		s.telemetry.RecordAutomationExecution(ctx, a.ID, exec.Duration, false)
	}
	return exec, runErr
}

func (s *Scheduler) nextRunAt(a *Automation, after time.Time) *time.Time {
	if a.Trigger.Kind != TriggerCron {
		return nil
	}
	next, err := firstFireAfter(after, a.Trigger.CronExpression, a.Trigger.Timezone)
	if err != nil {
		s.logger.Error("automation: recomputing nextRunAt failed", "automation", a.ID, "error", err)
		return a.NextRunAt
	}
	return &next
}

// Start begins the background tick loop, grounded on stherrien-gorax's
// Scheduler.Start/run (ticker + stop channel + WaitGroup).
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Tick(ctx, time.Now())
		}
	}
}

// Stop halts the background tick loop and waits for the in-flight tick to
// finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
}
