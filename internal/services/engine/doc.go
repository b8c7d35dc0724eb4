// Package engine implements the enrichment collaborator: given intent text
// and extracted content it produces the summary, score, todos, and card
// payloads. The HTTP client speaks a JSON-only chat-completion protocol; the
// Stub provides a deterministic offline implementation.
package engine
