// Package services defines shared utilities consumed by the resolution engine,
// the scanner session and the external clients.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, barcodes, and scanner session
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (not found, network, validation, capacity) with errors.Is.
//   - UserMessage, which turns a classified failure into short text that is
//     safe to show to an end user.
//
// Use these helpers when wiring new lookups so error handling and
// observability stay uniform across components.
package services
