// Package pipeline orchestrates a reply-generation run: it loads tickets
// from a source, generates replies in concurrent batches, persists results,
// and checkpoints progress so interrupted runs can resume.
package pipeline
