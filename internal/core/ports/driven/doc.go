// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): storage, embedding, generation, and
// PDF extraction.
package driven
