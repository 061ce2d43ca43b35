// Package config centralizes the tunable limits and network-access
// defaults used across the workflow engine: execution timeouts, HTTP
// client behavior, SSRF allow/block toggles, cache sizing, and retry
// defaults.
//
// Default returns secure, production-ready values (HTTPS only, private
// IPs/localhost/cloud-metadata blocked); Development, Production, and
// Testing return profiles tuned for those environments. Validate
// rejects negative durations/sizes before a Config is handed to the
// engine or httpclient.Builder.
//
//	cfg := config.Default()
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	builder := httpclient.NewBuilder(cfg)
package config
