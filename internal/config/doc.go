// Package config loads, normalizes, and validates shelfscan configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TMDB_API_KEY and UPC_API_KEY. The Config type centralizes every knob the CLI,
// the resolution engine and the scanner session need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
