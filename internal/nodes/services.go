package nodes

import (
	"net/http"
	"time"

	"github.com/flowkit/engine/internal/httpclient"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/security"
)

// servicesKey is the reserved underscore-prefixed state key node bodies use
// to retrieve externally injected services (spec §9, "Service injection":
// "the only sanctioned in-band cross-cutting dependency channel"). Callers
// seed it via Engine.Execute's initialOverrides before a run begins.
const servicesKey = "_services"

// Services is the well-known service collection shape fetch (and any future
// I/O node) retrieves by sub-key.
type Services struct {
	HTTPClient *http.Client

	// HTTPClients resolves a fetch node's "client" config key to a named,
	// pre-built *http.Client (auth, timeouts, default headers). Nil means
	// only HTTPClient is available.
	HTTPClients *httpclient.Registry

	// SSRF overrides fetch's default (strict, zero-trust) URL guard, letting
	// a caller apply config.Config's Allow* network settings consistently
	// with httpclient.Builder's redirect validation. Nil keeps fetch's
	// built-in default.
	SSRF *security.SSRFProtection
}

// servicesFrom extracts the injected Services from state, returning a safe
// default (a bare http.Client with a conservative timeout) when none was
// injected — so a node under test, or a workflow run without explicit
// service wiring, still behaves deterministically rather than panicking on
// a nil client.
func servicesFrom(ctx registry.ExecutionContext) Services {
	if raw, ok := ctx.State()[servicesKey]; ok {
		if svc, ok := raw.(Services); ok {
			return svc
		}
		if svc, ok := raw.(*Services); ok && svc != nil {
			return *svc
		}
	}
	return Services{HTTPClient: &http.Client{Timeout: 30 * time.Second}}
}
