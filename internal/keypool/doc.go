// Package keypool manages a fixed pool of Gemini API keys with round-robin
// rotation, per-key usage tracking over a one-minute window, and least-used
// selection.
package keypool
