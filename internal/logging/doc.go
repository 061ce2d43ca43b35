// Package logging wraps log/slog with workflow-specific context
// propagation: WithWorkflowID/WithExecutionID/WithNodeID/WithNodeType
// attach the identifiers SPEC_FULL's engine and server handlers carry
// on every log line, and WithContext/FromContext round-trip a Logger
// through a context.Context so a handler deep in the call stack can
// recover the request-scoped logger instead of threading it through
// every signature.
//
//	logger := logging.New(logging.DefaultConfig())
//	ctx = logger.WithContext(ctx)
//	...
//	logging.FromContext(ctx).WithNodeID(nodeID).Info("node executing")
//
// Output defaults to JSON on stdout at info level; Config.Pretty
// switches to slog's human-readable text handler for local development.
package logging
