// Package gemini generates ticket replies with the Generative Language API.
//
// Client is a thin HTTP wrapper over generateContent; Processor layers key
// rotation, a per-minute call budget, retry with backoff, and reply
// parsing/validation on top of it.
package gemini
