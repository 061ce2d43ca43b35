// Package storage saves and retrieves workflow definitions by ID for the
// HTTP server and the automation scheduler's StorageLoader.
//
// Two Store implementations are provided: InMemoryStore, for development
// and single-process deployments, and PostgresStore, which persists
// workflows in the same database automation.PostgresStore uses for
// automation records. `cmd/workflow serve -store postgres -postgres-dsn
// ...` selects the latter for both.
//
// # Usage
//
//	store := storage.NewInMemoryStore()
//
//	// Save a workflow
//	id, err := store.Save("my-workflow", "", workflowData)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Load a workflow
//	workflow, err := store.Load(id)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// List all workflows
//	workflows := store.List()
package storage
