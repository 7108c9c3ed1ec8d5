// Package domain contains the core business entities and domain errors
// for the policy assistant. It has no dependencies on adapters or
// external services.
package domain
