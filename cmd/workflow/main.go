// Command workflow runs, schedules, and serves flowkit workflows.
//
// Usage:
//
//	workflow run <file> [-state json] [-loop-bound n] [-run-timeout d]
//	workflow automations list|enable|disable|trigger <id>
//	workflow serve [-addr :8080] [-store memory|postgres] [-postgres-dsn dsn]
//
// The serve subcommand exposes:
//
//	POST   /api/v1/workflows/execute          - Execute a workflow
//	POST   /api/v1/workflows/validate         - Validate a workflow
//	GET    /api/v1/automations                - List automations
//	POST   /api/v1/automations                - Create an automation
//	POST   /api/v1/automations/{id}/enable     - Enable an automation
//	POST   /api/v1/automations/{id}/disable    - Disable an automation
//	POST   /api/v1/automations/{id}/trigger    - Trigger an automation now
//	POST   /api/v1/webhooks/{automationID}     - Webhook trigger
//	GET    /health, /health/live, /health/ready
//	GET    /metrics
//
// Grounded on the teacher's cmd/server/main.go flag/signal-handling shape,
// generalized from a single "start the server" command into the multi-verb
// CLI spec.md §6 names (run/automations/serve).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowkit/engine/internal/automation"
	"github.com/flowkit/engine/internal/config"
	"github.com/flowkit/engine/internal/engine"
	"github.com/flowkit/engine/internal/httpclient"
	"github.com/flowkit/engine/internal/nodes"
	"github.com/flowkit/engine/internal/parser"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/security"
	"github.com/flowkit/engine/internal/server"
	"github.com/flowkit/engine/internal/storage"
	"github.com/flowkit/engine/internal/telemetry"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	reg := registry.New()
	if err := nodes.RegisterBuiltins(reg); err != nil {
		fmt.Fprintf(os.Stderr, "workflow: registering built-in nodes: %v\n", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCommand(reg, os.Args[2:])
	case "automations":
		automationsCommand(reg, os.Args[2:])
	case "serve":
		serveCommand(reg, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: workflow run <file> | automations list|enable|disable|trigger <id> | serve")
}

func runCommand(reg *registry.Registry, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	stateJSON := fs.String("state", "", "JSON object merged over the workflow's initial state")
	loopBound := fs.Int("loop-bound", 0, "maximum re-entries of a single loop node instance")
	runTimeout := fs.Duration("run-timeout", 0, "maximum wall-clock time for the run")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "workflow run: missing <file>")
		os.Exit(2)
	}

	raw, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "workflow run: reading %s: %v\n", fs.Arg(0), err)
		os.Exit(1)
	}

	wf, err := parser.Parse(raw, reg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "workflow run: parsing workflow: %v\n", err)
		os.Exit(1)
	}

	var overrides map[string]interface{}
	if *stateJSON != "" {
		if err := json.Unmarshal([]byte(*stateJSON), &overrides); err != nil {
			fmt.Fprintf(os.Stderr, "workflow run: parsing -state: %v\n", err)
			os.Exit(1)
		}
	}

	eng := engine.New(reg, engine.Options{LoopBound: *loopBound, RunTimeout: *runTimeout})
	result, err := eng.Execute(context.Background(), wf, overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "workflow run: execution failed: %v\n", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(map[string]interface{}{
		"state":       result.State,
		"outcome":     result.Outcome,
		"executionId": result.ExecutionID,
	}, "", "  ")
	fmt.Println(string(out))
}

func automationsCommand(reg *registry.Registry, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "workflow automations: missing subcommand (list|enable|disable|trigger)")
		os.Exit(2)
	}
	verb := args[0]

	fs := flag.NewFlagSet("automations "+verb, flag.ExitOnError)
	storeKind := fs.String("store", "memory", "automation store backend: memory | postgres")
	postgresDSN := fs.String("postgres-dsn", "", "postgres connection string, required when -store=postgres")
	fs.Parse(args[1:])
	rest := fs.Args()

	ctx := context.Background()

	var store automation.Store
	var workflowStore storage.Store
	switch *storeKind {
	case "memory":
		store = automation.NewInMemoryStore()
		workflowStore = storage.NewInMemoryStore()
	case "postgres":
		if *postgresDSN == "" {
			fmt.Fprintln(os.Stderr, "workflow automations: -postgres-dsn is required with -store=postgres")
			os.Exit(2)
		}
		pg, err := automation.NewPostgresStore(ctx, *postgresDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "workflow automations: %v\n", err)
			os.Exit(1)
		}
		defer pg.Close()
		store = pg

		pgWorkflows, err := storage.NewPostgresStore(ctx, *postgresDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "workflow automations: %v\n", err)
			os.Exit(1)
		}
		defer pgWorkflows.Close()
		workflowStore = pgWorkflows
	default:
		fmt.Fprintf(os.Stderr, "workflow automations: unknown -store %q\n", *storeKind)
		os.Exit(2)
	}
	eng := engine.New(reg, engine.Options{})
	sched := automation.New(store, &automation.StorageLoader{Store: workflowStore, Registry: reg}, &automation.EngineRunner{Engine: eng}, automation.Options{})

	switch verb {
	case "list":
		automations, err := sched.ListByTenant(ctx, "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "workflow automations list: %v\n", err)
			os.Exit(1)
		}
		out, _ := json.MarshalIndent(automations, "", "  ")
		fmt.Println(string(out))

	case "enable", "disable":
		if len(rest) < 1 {
			fmt.Fprintf(os.Stderr, "workflow automations %s: missing <id>\n", verb)
			os.Exit(2)
		}
		var err error
		if verb == "enable" {
			err = sched.Enable(ctx, rest[0])
		} else {
			err = sched.Disable(ctx, rest[0])
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "workflow automations %s: %v\n", verb, err)
			os.Exit(1)
		}

	case "trigger":
		if len(rest) < 1 {
			fmt.Fprintln(os.Stderr, "workflow automations trigger: missing <id>")
			os.Exit(2)
		}
		exec, err := sched.ExecuteNow(ctx, rest[0], nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "workflow automations trigger: %v\n", err)
			os.Exit(1)
		}
		out, _ := json.MarshalIndent(exec, "", "  ")
		fmt.Println(string(out))

	default:
		fmt.Fprintf(os.Stderr, "workflow automations: unknown subcommand %q\n", verb)
		os.Exit(2)
	}
}

func serveCommand(reg *registry.Registry, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "server address")
	allowHTTP := fs.Bool("allow-http", false, "allow fetch nodes to make outbound HTTP requests")
	maxExecutionTime := fs.Duration("max-execution-time", time.Minute, "maximum workflow execution time")
	tickInterval := fs.Duration("scheduler-tick-interval", automation.DefaultTickInterval, "automation scheduler poll cadence")
	storeKind := fs.String("store", "memory", "automation store backend: memory | postgres")
	postgresDSN := fs.String("postgres-dsn", "", "postgres connection string, required when -store=postgres")
	fs.Parse(args)

	engineConfig := config.Default()
	engineConfig.AllowHTTP = *allowHTTP
	engineConfig.MaxExecutionTime = *maxExecutionTime

	httpBuilder := httpclient.NewBuilder(engineConfig)
	client, err := httpBuilder.Build(&httpclient.ClientConfig{Name: "workflow-fetch-node", Timeout: engineConfig.HTTPTimeout})
	if err != nil {
		fmt.Fprintf(os.Stderr, "workflow serve: building http client: %v\n", err)
		os.Exit(1)
	}

	clientRegistry := httpclient.NewRegistry()
	for _, named := range engineConfig.HTTPClients {
		namedClient, err := httpBuilder.Build(httpclient.FromConfigHTTPClient(named))
		if err != nil {
			fmt.Fprintf(os.Stderr, "workflow serve: building http client %q: %v\n", named.Name, err)
			os.Exit(1)
		}
		if err := clientRegistry.Register(named.Name, namedClient); err != nil {
			fmt.Fprintf(os.Stderr, "workflow serve: registering http client %q: %v\n", named.Name, err)
			os.Exit(1)
		}
	}
	fetchSchemes := []string{"https"}
	if engineConfig.AllowHTTP {
		fetchSchemes = append(fetchSchemes, "http")
	}
	fetchSSRF := security.NewSSRFProtectionWithConfig(security.SSRFConfig{
		AllowedSchemes:     fetchSchemes,
		BlockPrivateIPs:    !engineConfig.AllowPrivateIPs,
		BlockLocalhost:     !engineConfig.AllowLocalhost,
		BlockLinkLocal:     !engineConfig.AllowLinkLocal,
		BlockCloudMetadata: !engineConfig.AllowCloudMetadata,
		AllowedDomains:     engineConfig.AllowedDomains,
	})
	services := nodes.Services{HTTPClient: client.Client, HTTPClients: clientRegistry, SSRF: fetchSSRF}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryProvider, err := telemetry.NewProvider(ctx, telemetry.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "workflow serve: creating telemetry provider: %v\n", err)
		os.Exit(1)
	}

	eng := engine.New(reg, engine.Options{
		RunTimeout: *maxExecutionTime,
		Observer:   telemetry.NewTelemetryObserver(telemetryProvider),
	})

	var workflowStore storage.Store
	var automationStore automation.Store
	switch *storeKind {
	case "memory":
		workflowStore = storage.NewInMemoryStore()
		automationStore = automation.NewInMemoryStore()
	case "postgres":
		if *postgresDSN == "" {
			fmt.Fprintln(os.Stderr, "workflow serve: -postgres-dsn is required with -store=postgres")
			os.Exit(2)
		}
		pgWorkflows, err := storage.NewPostgresStore(ctx, *postgresDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "workflow serve: %v\n", err)
			os.Exit(1)
		}
		defer pgWorkflows.Close()
		workflowStore = pgWorkflows

		pgAutomations, err := automation.NewPostgresStore(ctx, *postgresDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "workflow serve: %v\n", err)
			os.Exit(1)
		}
		defer pgAutomations.Close()
		automationStore = pgAutomations
	default:
		fmt.Fprintf(os.Stderr, "workflow serve: unknown -store %q\n", *storeKind)
		os.Exit(2)
	}

	sched := automation.New(
		automationStore,
		&automation.StorageLoader{Store: workflowStore, Registry: reg},
		&automation.EngineRunner{Engine: eng, Services: services},
		automation.Options{TickInterval: *tickInterval, Telemetry: telemetryProvider},
	)
	sched.Start(ctx)
	defer sched.Stop()

	serverConfig := server.DefaultConfig()
	serverConfig.Address = *addr
	srv, err := server.New(serverConfig, reg, eng, workflowStore, sched, services, telemetryProvider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "workflow serve: creating server: %v\n", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		fmt.Printf("flowkit workflow engine listening on %s\n", *addr)
		if err := srv.Start(); err != nil {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "workflow serve: %v\n", err)
		os.Exit(1)
	case sig := <-sigChan:
		fmt.Printf("\nreceived signal: %v, shutting down\n", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "workflow serve: shutdown error: %v\n", err)
			os.Exit(1)
		}
	}
}
