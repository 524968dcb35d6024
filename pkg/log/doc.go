// Package log provides structured event logging for the CoT publisher.
//
// The library reports what it does through Event values: frames going
// out on a transport, connection state changes, and errors. An
// application passes a Logger implementation to the transports and
// publisher; events flow to it as they happen.
//
// Implementations provided here:
//
//   - NoopLogger: discards everything (the default).
//   - FileLogger: appends a compact CBOR event stream to a file,
//     readable back with ReadEvents for post-hoc analysis.
//   - SlogAdapter: renders events through log/slog for console output.
//   - MultiLogger: fans out to several loggers at once.
//
// Process-wide logging configuration (handler setup, levels, output
// destinations) stays with the application; this package never touches
// slog.Default() configuration.
package log
