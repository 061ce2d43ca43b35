// Package security guards outbound HTTP calls made by workflow nodes
// against Server-Side Request Forgery.
//
// fetch and any other node that dials a URL supplied in workflow state
// construct an SSRFProtection from SSRFConfig (or DefaultSSRFConfig) and
// call ValidateURL before issuing the request. The default config blocks
// loopback, RFC1918/ULA private ranges, link-local addresses, and the
// common cloud metadata endpoints (169.254.169.254, fd00:ec2::254),
// resolving hostnames to check every returned IP, not just the literal
// host in the URL.
//
//	ssrf := security.NewSSRFProtection()
//	if err := ssrf.ValidateURL(target); err != nil {
//	    return nil, err
//	}
//
// Callers that need to reach internal services can relax individual
// checks or add an explicit allowlist/blocklist via SSRFConfig passed to
// NewSSRFProtectionWithConfig.
package security
