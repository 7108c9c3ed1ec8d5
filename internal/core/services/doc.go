// Package services contains the core business logic: intent routing,
// retrieval, answer assembly, conversation sessions, and the ingestion
// orchestrator. Services depend only on ports, never on adapters.
package services
