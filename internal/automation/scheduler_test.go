package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowkit/engine/internal/ast"
)

type stubLoader struct {
	wf  *ast.Workflow
	err error
}

func (l *stubLoader) Load(_ context.Context, _ string) (*ast.Workflow, error) {
	return l.wf, l.err
}

type stubRunner struct {
	result ExecutionResult
	err    error
	calls  int
}

func (r *stubRunner) Execute(_ context.Context, _ *ast.Workflow, _ map[string]interface{}) (ExecutionResult, error) {
	r.calls++
	return r.result, r.err
}

func newTestScheduler(loader WorkflowLoader, runner WorkflowRunner) (*Scheduler, Store) {
	store := NewInMemoryStore()
	sched := New(store, loader, runner, Options{})
	return sched, store
}

func TestSchedulerCreateComputesNextRunAtForCronTrigger(t *testing.T) {
	sched, _ := newTestScheduler(&stubLoader{}, &stubRunner{})
	a := &Automation{ID: "a1", Trigger: Trigger{Kind: TriggerCron, CronExpression: "* * * * *"}}

	require.NoError(t, sched.Create(context.Background(), a))
	require.NotNil(t, a.NextRunAt)
	assert.False(t, a.CreatedAt.IsZero())
}

func TestSchedulerCreateLeavesNextRunAtNilForNonCron(t *testing.T) {
	sched, _ := newTestScheduler(&stubLoader{}, &stubRunner{})
	a := &Automation{ID: "a1", Trigger: Trigger{Kind: TriggerImmediate}}

	require.NoError(t, sched.Create(context.Background(), a))
	assert.Nil(t, a.NextRunAt)
}

func TestSchedulerExecuteNowRecordsSuccessAndCounters(t *testing.T) {
	wf := &ast.Workflow{ID: "wf1"}
	runner := &stubRunner{result: ExecutionResult{State: map[string]interface{}{"ok": true}}}
	sched, store := newTestScheduler(&stubLoader{wf: wf}, runner)

	a := &Automation{ID: "a1", WorkflowID: "wf1", Trigger: Trigger{Kind: TriggerImmediate}}
	require.NoError(t, sched.Create(context.Background(), a))

	exec, err := sched.ExecuteNow(context.Background(), "a1", map[string]interface{}{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, ExecutionCompleted, exec.Status)
	assert.Equal(t, map[string]interface{}{"ok": true}, exec.Result)
	assert.Equal(t, 1, runner.calls)

	got, err := store.Get(context.Background(), "a1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.RunCount)
	assert.EqualValues(t, 1, got.SuccessCount)
	assert.EqualValues(t, 0, got.FailureCount)
}

func TestSchedulerExecuteNowRecordsFailureButKeepsAutomationEnabled(t *testing.T) {
	wf := &ast.Workflow{ID: "wf1"}
	runner := &stubRunner{err: errors.New("boom")}
	sched, store := newTestScheduler(&stubLoader{wf: wf}, runner)

	a := &Automation{ID: "a1", WorkflowID: "wf1", Enabled: true, Trigger: Trigger{Kind: TriggerImmediate}}
	require.NoError(t, sched.Create(context.Background(), a))

	_, err := sched.ExecuteNow(context.Background(), "a1", nil)
	require.Error(t, err)

	got, err := store.Get(context.Background(), "a1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.RunCount)
	assert.EqualValues(t, 1, got.FailureCount)
	assert.Equal(t, "boom", got.LastError)
	assert.True(t, got.Enabled, "spec §7: a single failure does not disable the automation")
}

func TestSchedulerExecuteNowPropagatesLoaderError(t *testing.T) {
	sched, _ := newTestScheduler(&stubLoader{err: errors.New("no such workflow")}, &stubRunner{})
	a := &Automation{ID: "a1", WorkflowID: "missing", Trigger: Trigger{Kind: TriggerImmediate}}
	require.NoError(t, sched.Create(context.Background(), a))

	_, err := sched.ExecuteNow(context.Background(), "a1", nil)
	assert.Error(t, err)
}

func TestSchedulerTickRunsOnlyDueAutomations(t *testing.T) {
	wf := &ast.Workflow{ID: "wf1"}
	runner := &stubRunner{result: ExecutionResult{}}
	sched, store := newTestScheduler(&stubLoader{wf: wf}, runner)

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Minute)
	require.NoError(t, store.Upsert(context.Background(), &Automation{
		ID: "due", WorkflowID: "wf1", Enabled: true, Trigger: Trigger{Kind: TriggerCron}, NextRunAt: &past,
	}))
	require.NoError(t, store.Upsert(context.Background(), &Automation{
		ID: "not-yet", WorkflowID: "wf1", Enabled: true, Trigger: Trigger{Kind: TriggerCron}, NextRunAt: &future,
	}))

	sched.Tick(context.Background(), time.Now())
	assert.Equal(t, 1, runner.calls)
}

func TestSchedulerEnableDisable(t *testing.T) {
	sched, store := newTestScheduler(&stubLoader{}, &stubRunner{})
	require.NoError(t, store.Upsert(context.Background(), &Automation{ID: "a1", Enabled: false}))

	require.NoError(t, sched.Enable(context.Background(), "a1"))
	got, err := sched.Get(context.Background(), "a1")
	require.NoError(t, err)
	assert.True(t, got.Enabled)

	require.NoError(t, sched.Disable(context.Background(), "a1"))
	got, err = sched.Get(context.Background(), "a1")
	require.NoError(t, err)
	assert.False(t, got.Enabled)
}

func TestSchedulerStartStopRunsAtLeastOneImmediateTick(t *testing.T) {
	wf := &ast.Workflow{ID: "wf1"}
	runner := &stubRunner{result: ExecutionResult{}}
	sched, store := newTestScheduler(&stubLoader{wf: wf}, runner)

	past := time.Now().Add(-time.Minute)
	require.NoError(t, store.Upsert(context.Background(), &Automation{
		ID: "due", WorkflowID: "wf1", Enabled: true, Trigger: Trigger{Kind: TriggerCron}, NextRunAt: &past,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	sched.Stop()

	assert.Equal(t, 1, runner.calls)
}
