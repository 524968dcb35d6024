// Package publisher is the high-level entry point for sending
// Cursor-on-Target events.
//
// A Publisher pairs one codec with one transport. Two call styles
// share a single publish path:
//
//   - Publish(ctx, event) is context-aware and suspends only at
//     transport I/O and reconnection backoff waits.
//   - PublishBlocking(event) drives the same path with a background
//     context, occupying the caller for the full duration.
//
// Both produce identical wire bytes and identical reconnection
// behavior by construction.
//
// Publishers can be built directly (NewMulticast, NewTAKServer) or
// from a YAML configuration file (LoadConfig / FromConfig).
// Independent Publishers share nothing and are safe to use from
// separate goroutines.
package publisher
