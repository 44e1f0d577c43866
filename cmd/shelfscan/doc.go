// Package main hosts the shelfscan CLI entrypoint and command graph.
//
// The Cobra-based command tree resolves single barcodes, runs scanning
// sessions over keyboard-wedge input, inspects and clears the lookup cache,
// scaffolds configuration and runs readiness checks. Results that need a human
// are forwarded to ntfy when notifications are configured. Configuration loading,
// logger construction and cache opening live in commandContext so subcommands
// only wire the internal packages together and render results.
package main
