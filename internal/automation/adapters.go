package automation

import (
	"context"
	"fmt"

	"github.com/flowkit/engine/internal/ast"
	"github.com/flowkit/engine/internal/engine"
	"github.com/flowkit/engine/internal/nodes"
	"github.com/flowkit/engine/internal/parser"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/storage"
)

// EngineRunner adapts *engine.Engine to the scheduler's WorkflowRunner
// interface, so internal/automation depends on the engine only through this
// one narrow seam. Services, when set, is injected into every run's
// overrides under the reserved "_services" key (spec §9's service
// injection channel) so fetch (and future I/O) nodes see the
// process-configured HTTP client.
type EngineRunner struct {
	Engine   *engine.Engine
	Services nodes.Services
}

func (r *EngineRunner) Execute(ctx context.Context, wf *ast.Workflow, overrides map[string]interface{}) (ExecutionResult, error) {
	merged := make(map[string]interface{}, len(overrides)+1)
	for k, v := range overrides {
		merged[k] = v
	}
	if r.Services.HTTPClient != nil {
		merged["_services"] = r.Services
	}
	result, err := r.Engine.Execute(ctx, wf, merged)
	if err != nil {
		return ExecutionResult{}, err
	}
	return ExecutionResult{State: result.State}, nil
}

// StorageLoader adapts internal/storage.Store to WorkflowLoader, parsing
// the stored workflow JSON against reg on every load so edits to a stored
// definition are picked up without a cache-invalidation mechanism.
type StorageLoader struct {
	Store    storage.Store
	Registry *registry.Registry
}

func (l *StorageLoader) Load(_ context.Context, workflowID string) (*ast.Workflow, error) {
	stored, err := l.Store.Load(workflowID)
	if err != nil {
		return nil, fmt.Errorf("automation: loading workflow %s: %w", workflowID, err)
	}
	wf, err := parser.Parse(stored.Data, l.Registry)
	if err != nil {
		return nil, fmt.Errorf("automation: parsing workflow %s: %w", workflowID, err)
	}
	return wf, nil
}
