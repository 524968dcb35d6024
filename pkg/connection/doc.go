// Package connection provides the reconnection policy used by the TLS
// transport: exponential backoff with jitter, bounded by a maximum
// attempt count.
//
// # Reconnection strategy
//
// When an established session fails mid-write, the transport retries
// with exponential backoff:
//
//  1. Initial delay: BackoffBase (default 500ms)
//  2. Exponential increase by Multiplier (default 2.0)
//  3. Capped at BackoffCap (default 30s)
//  4. Stop after MaxAttempts (default 5) and surface the failure
//  5. Reset on success
//
// # Jitter
//
// To prevent thundering herd when multiple publishers reconnect:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
//
// Handshake and authentication failures are never retried; they
// indicate misconfiguration, not transient loss. Only write failures on
// a previously authenticated session go through this policy.
package connection
