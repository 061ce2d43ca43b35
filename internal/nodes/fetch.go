package nodes

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/flowkit/engine/internal/ast"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/security"
)

// fetchDescriptor matches spec §8 scenario S5: an HTTP node with distinct
// edges for success, a 4xx client error (recoverable locally by wiring a
// "clientError?" branch), a 5xx server error, and a transport-level error.
var fetchDescriptor = registry.Descriptor{
	Identifier: "fetch",
	Name:       "HTTP Fetch",
	Version:    "1.0.0",
	ConfigKeys: []string{"url", "method", "client"},
	OutputKeys: []string{"status", "body"},
	Edges:      []string{"success", "clientError", "serverError", "error"},
	Hints:      map[string]string{"category": "http"},
}

// fetchNode performs an HTTP GET (or config.method) against config.url,
// honouring the SSRF guard the same way the teacher's http.go HTTPExecutor
// does, and routes the response to one of four edges instead of returning a
// single DAG result (spec §4.6, node-emitted error edges as a normal
// value).
type fetchNode struct {
	ssrf *security.SSRFProtection
}

func newFetchNode() *fetchNode {
	return &fetchNode{ssrf: security.NewSSRFProtection()}
}

func (n *fetchNode) Execute(ctx registry.ExecutionContext, config map[string]interface{}) (ast.EdgeMap, error) {
	rawURL := configString(config, "url", "")
	if rawURL == "" {
		return nil, fmt.Errorf("fetch: missing required config key \"url\"")
	}
	if _, err := url.Parse(rawURL); err != nil {
		return nil, fmt.Errorf("fetch: invalid url %q: %w", rawURL, err)
	}

	svc := servicesFrom(ctx)
	ssrf := n.ssrf
	if svc.SSRF != nil {
		ssrf = svc.SSRF
	}
	if err := ssrf.ValidateURL(rawURL); err != nil {
		// SSRF rejection is a configuration/security problem, not a remote
		// outcome the workflow author can route around — surface it as an
		// engine failure rather than an "error" edge.
		return nil, fmt.Errorf("fetch: %w", err)
	}

	method := configString(config, "method", "GET")
	client := svc.HTTPClient
	if clientName := configString(config, "client", ""); clientName != "" {
		if svc.HTTPClients == nil {
			return nil, fmt.Errorf("fetch: no named HTTP clients configured, requested %q", clientName)
		}
		named, _, err := svc.HTTPClients.GetHTTPClient(clientName)
		if err != nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}
		client = named
	}

	req, err := http.NewRequest(method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: building request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return edge("error", map[string]interface{}{"error": err.Error()}), nil
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if readErr != nil {
		return edge("error", map[string]interface{}{"error": readErr.Error()}), nil
	}

	payload := map[string]interface{}{"status": resp.StatusCode, "body": string(body)}
	ctx.State()["status"] = resp.StatusCode
	ctx.State()["body"] = string(body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return edge("success", payload), nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return edge("clientError", payload), nil
	case resp.StatusCode >= 500:
		return edge("serverError", payload), nil
	default:
		return edge("success", payload), nil
	}
}
