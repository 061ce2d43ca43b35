// Package engine implements the Execution Engine (spec §4.4): it drives an
// ast.Workflow's AST, invoking each node, routing edges to branches,
// re-entering loop bodies until a terminal edge fires, and aggregating the
// final state. Grounded on the teacher's pkg/engine/engine.go Observer +
// Logger wiring and cancellation-polling shape, generalized from the
// teacher's DAG/topological-sort traversal to the spec's tree-with-branches
// traversal.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowkit/engine/internal/ast"
	"github.com/flowkit/engine/internal/logging"
	"github.com/flowkit/engine/internal/observer"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/state"
)

// DefaultLoopBound is the per-loop re-entry cap applied when Options.LoopBound
// is zero (spec §6, ENGINE_LOOP_BOUND default).
const DefaultLoopBound = 10_000

// Options configures one Engine. Zero values fall back to spec defaults.
type Options struct {
	// LoopBound caps re-entries of any single loop-marked node instance
	// before the run fails with ErrLoopBoundExceeded.
	LoopBound int
	// RunTimeout bounds total wall-clock time for one Execute call. Zero
	// means no engine-imposed timeout beyond the caller's context.
	RunTimeout time.Duration
	Observer   observer.Observer
	Logger     *logging.Logger
}

// Engine drives AST traversal against a fixed Registry. One Engine may run
// many workflows concurrently; each Execute call owns its own state.Manager
// (spec §5: "single-threaded cooperative per run, parallel across runs").
type Engine struct {
	reg        *registry.Registry
	loopBound  int
	runTimeout time.Duration
	obs        observer.Observer
	logger     *logging.Logger
}

// New creates an Engine bound to reg.
func New(reg *registry.Registry, opts Options) *Engine {
	loopBound := opts.LoopBound
	if loopBound <= 0 {
		loopBound = DefaultLoopBound
	}
	obs := opts.Observer
	if obs == nil {
		obs = observer.NoOp{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.New(logging.DefaultConfig())
	}
	return &Engine{
		reg:        reg,
		loopBound:  loopBound,
		runTimeout: opts.RunTimeout,
		obs:        obs,
		logger:     logger,
	}
}

// Result is the outcome of a successful Execute call.
type Result struct {
	// State is the final state, with reserved keys stripped (spec §3,
	// Invariants).
	State map[string]interface{}
	// Outcome is the edge name the last top-level step emitted, or "" if the
	// workflow had no steps left to run past engine-owned housekeeping.
	Outcome string
	// ExecutionID identifies this run, for correlation with logs/traces.
	ExecutionID string
}

// Execute runs wf from its initial state, merging overrides on top, and
// returns the final state or a *Failure (spec §4.4: "execute(ast,
// initialOverrides?) → finalState ∪ failure").
func (e *Engine) Execute(ctx context.Context, wf *ast.Workflow, overrides map[string]interface{}) (*Result, error) {
	executionID := uuid.NewString()
	ctx = context.WithValue(ctx, ast.ContextKeyExecutionID, executionID)
	ctx = context.WithValue(ctx, ast.ContextKeyWorkflowID, wf.ID)

	if e.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.runTimeout)
		defer cancel()
	}

	log := e.logger.WithWorkflowID(wf.ID).WithExecutionID(executionID)

	mgr, err := state.Init(wf.InitialState, overrides)
	if err != nil {
		return nil, newRunFailure(err)
	}
	for name, v := range wf.Context {
		mgr.Set("_context."+name, v)
	}

	e.obs.OnEvent(ctx, observer.Event{
		Type: observer.EventWorkflowStart, Status: observer.StatusStarted,
		Timestamp: time.Now(), ExecutionID: executionID, WorkflowID: wf.ID,
	})
	log.Info("workflow execution started")

	r := &runner{engine: e, mgr: mgr, workflowID: wf.ID, executionID: executionID, log: log}
	edge, _, err := r.runSequence(ctx, wf.Steps, nil)

	if err != nil {
		status := observer.StatusFailure
		e.obs.OnEvent(ctx, observer.Event{
			Type: observer.EventWorkflowEnd, Status: status,
			Timestamp: time.Now(), ExecutionID: executionID, WorkflowID: wf.ID, Error: err,
		})
		log.WithError(err).Error("workflow execution failed")
		return nil, err
	}

	e.obs.OnEvent(ctx, observer.Event{
		Type: observer.EventWorkflowEnd, Status: observer.StatusCompleted,
		Timestamp: time.Now(), ExecutionID: executionID, WorkflowID: wf.ID,
	})
	log.Info("workflow execution completed")

	return &Result{State: mgr.Snapshot(), Outcome: edge, ExecutionID: executionID}, nil
}

// Snapshot returns a deep copy of mgr's current state with reserved keys
// stripped (the same view Execute returns as Result.State). It carries no
// traversal path.
func Snapshot(mgr *state.Manager) map[string]interface{} {
	return mgr.Snapshot()
}

// runner threads the per-run dependencies (state manager, logger, IDs)
// through the recursive traversal without re-threading them as parameters on
// every call.
type runner struct {
	engine      *Engine
	mgr         *state.Manager
	workflowID  string
	executionID string
	log         *logging.Logger
}

// runSequence executes seq in program order (spec §4.4.1). It returns the
// edge and payload of the last step executed, which becomes the inputs/
// outcome the caller (a branch descent or a loop re-entry) uses next.
func (r *runner) runSequence(ctx context.Context, seq ast.Sequence, inputs interface{}) (string, interface{}, error) {
	var edge string
	payload := inputs

	for _, node := range seq {
		if err := checkCancellation(ctx); err != nil {
			return "", nil, err
		}
		var err error
		edge, payload, err = r.runNode(ctx, node, payload)
		if err != nil {
			return "", nil, err
		}
	}
	return edge, payload, nil
}

// runNode executes one AST node, including loop re-entry if it is
// loop-marked (spec §4.4.2, §4.4.3).
func (r *runner) runNode(ctx context.Context, node *ast.Node, inputs interface{}) (string, interface{}, error) {
	if node.IsLoop {
		return r.runLoop(ctx, node, inputs)
	}

	edge, payload, err := r.invokeOnce(ctx, node, inputs)
	if err != nil {
		return "", nil, err
	}

	if branch, ok := node.Branches[edge]; ok {
		return r.runSequence(ctx, branch, payload)
	}
	// Edge is a declared terminal of N's type: step completes, no descent.
	return edge, payload, nil
}

// runLoop implements the re-entry protocol (spec §4.4.3): re-invoke the same
// node after each branch completes, until it emits an edge with no branch.
func (r *runner) runLoop(ctx context.Context, node *ast.Node, inputs interface{}) (string, interface{}, error) {
	loopKey := "_loop_" + node.InstanceID
	r.mgr.Delete(loopKey) // start clean on entry, per spec §4.4.3

	iterations := 0
	for {
		if err := checkCancellation(ctx); err != nil {
			return "", nil, err
		}

		iterations++
		if iterations > r.engine.loopBound {
			r.mgr.Delete(loopKey)
			return "", nil, newLoopFailure(node.InstanceID, fmt.Errorf("%w: exceeded %d re-entries", ErrLoopBoundExceeded, r.engine.loopBound))
		}

		edge, payload, err := r.invokeOnce(ctx, node, inputs)
		if err != nil {
			r.mgr.Delete(loopKey)
			return "", nil, err
		}

		branch, hasBranch := node.Branches[edge]
		if !hasBranch {
			r.mgr.Delete(loopKey) // clean exit
			return edge, payload, nil
		}

		_, branchPayload, err := r.runSequence(ctx, branch, payload)
		if err != nil {
			r.mgr.Delete(loopKey)
			return "", nil, err
		}
		inputs = branchPayload
	}
}

// invokeOnce runs a single node invocation: build the execution context,
// resolve templates, call the node body, and extract its single edge (spec
// §4.4.2).
func (r *runner) invokeOnce(ctx context.Context, node *ast.Node, inputs interface{}) (string, interface{}, error) {
	nodeLog := r.log.WithNodeID(node.InstanceID).WithNodeType(node.NodeType)

	resolved, err := r.mgr.ResolveConfig(node.Config, inputs)
	if err != nil {
		return "", nil, newNodeFailure(node.InstanceID, err)
	}

	instance, err := r.engine.reg.Create(node.NodeType)
	if err != nil {
		return "", nil, newNodeFailure(node.InstanceID, err)
	}

	execCtx := &execContext{
		mgr:         r.mgr,
		inputs:      inputs,
		workflowID:  r.workflowID,
		nodeID:      node.InstanceID,
		executionID: r.executionID,
	}

	start := time.Now()
	r.engine.obs.OnEvent(ctx, observer.Event{
		Type: observer.EventNodeStart, Status: observer.StatusStarted,
		Timestamp: start, ExecutionID: r.executionID, WorkflowID: r.workflowID,
		NodeID: node.InstanceID, NodeType: node.NodeType, StartTime: start,
	})
	nodeLog.Debug("node execution started")

	edges, err := instance.Execute(execCtx, resolved)
	if err != nil {
		r.engine.obs.OnEvent(ctx, observer.Event{
			Type: observer.EventNodeFailure, Status: observer.StatusFailure,
			Timestamp: time.Now(), ExecutionID: r.executionID, WorkflowID: r.workflowID,
			NodeID: node.InstanceID, NodeType: node.NodeType,
			StartTime: start, ElapsedTime: time.Since(start), Error: err,
		})
		nodeLog.WithError(err).Error("node execution failed")
		return "", nil, newNodeFailure(node.InstanceID, err)
	}

	edge, thunk, warn, err := edges.SingleEdge()
	if err != nil {
		return "", nil, newNodeFailure(node.InstanceID, err)
	}
	if warn {
		nodeLog.Warn("node returned multiple edges; using first in map order")
	}

	payload, err := thunk()
	if err != nil {
		r.engine.obs.OnEvent(ctx, observer.Event{
			Type: observer.EventNodeFailure, Status: observer.StatusFailure,
			Timestamp: time.Now(), ExecutionID: r.executionID, WorkflowID: r.workflowID,
			NodeID: node.InstanceID, NodeType: node.NodeType,
			StartTime: start, ElapsedTime: time.Since(start), Error: err,
		})
		nodeLog.WithError(err).Error("node edge thunk failed")
		return "", nil, newNodeFailure(node.InstanceID, err)
	}

	r.engine.obs.OnEvent(ctx, observer.Event{
		Type: observer.EventNodeSuccess, Status: observer.StatusSuccess,
		Timestamp: time.Now(), ExecutionID: r.executionID, WorkflowID: r.workflowID,
		NodeID: node.InstanceID, NodeType: node.NodeType,
		StartTime: start, ElapsedTime: time.Since(start), Result: payload,
		Metadata: map[string]interface{}{"edge": edge},
	})
	nodeLog.WithField("edge", edge).Debug("node execution completed")

	return edge, payload, nil
}

// checkCancellation maps a cancelled/expired context into an engine
// *Failure per spec §5, "Cancellation and timeout".
func checkCancellation(ctx context.Context) error {
	select {
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return newRunFailure(fmt.Errorf("%w", ErrRunTimeout))
		}
		return newRunFailure(fmt.Errorf("%w", ErrRunCancelled))
	default:
		return nil
	}
}
