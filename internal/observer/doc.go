// Package observer implements a single-method Observer pattern for
// workflow execution: every workflow-start/end and node-start/end/
// success/failure transition is reported as one Event{Type, Status,
// ExecutionID, NodeID, ...} through Observer.OnEvent, rather than one
// callback per lifecycle stage, so a new event kind never requires
// widening the interface.
//
// NoOp discards events (the engine's default). defaults.go's
// ConsoleObserver is a ready-to-use logging sink, and Manager holds several
// observers and passes each event to all of them from Notify, calling each
// observer on its own goroutine, so the order in which observers see an
// event is not defined. Manager has no OnEvent method and is not itself an
// Observer.
//
//	mgr := observer.NewManager()
//	mgr.Register(observer.NewConsoleObserver())
//	mgr.Notify(ctx, event)
package observer
