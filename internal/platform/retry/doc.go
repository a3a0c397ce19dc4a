// Package retry provides a generic retry engine with error classification
// and bounded exponential backoff.
package retry
