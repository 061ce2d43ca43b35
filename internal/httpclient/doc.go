// Package httpclient builds named *http.Client instances for the
// fetch node and other outbound-request callers, so a workflow can
// reference "api-client" instead of repeating auth/timeout/header
// configuration at every call site.
//
// # Features
//
//   - Multiple named clients, each with its own ClientConfig
//   - Authentication: none (default), HTTP Basic, or Bearer token
//   - Configurable timeout, redirect limit, default headers/query params
//   - SSRF protection via the engine's config.Config network settings
//   - A thread-safe Registry for looking clients up by name
//
// # Example
//
//	cfg := &httpclient.ClientConfig{
//	    Name:     "api-client",
//	    AuthType: httpclient.AuthTypeBearer,
//	    Token:    httpclient.NewSecureString("your-api-token"),
//	    Timeout:  60 * time.Second,
//	}
//
//	builder := httpclient.NewBuilder(engineConfig)
//	client, err := builder.Build(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry := httpclient.NewRegistry()
//	registry.Register("api-client", client)
//
// # Security
//
//   - Every built client inherits SSRF protection from config.Config
//   - Credentials are held in SecureString so they don't leak into logs
//   - Response size and redirect count are capped to bound resource use
package httpclient
