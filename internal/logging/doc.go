// Package logging configures the global slog logger.
//
// Supports text and JSON handlers with a configurable level, and stamps every
// record with a per-run identifier.
package logging
