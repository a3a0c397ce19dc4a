// Package store persists processed tickets to daily JSON files and keeps a
// resumable progress snapshot between runs.
package store
