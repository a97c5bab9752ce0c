// Package services defines shared utilities consumed by the orchestrator and
// the provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp notebook IDs, job IDs, stage names, and
//     request identifiers for logging.
//   - Structured error markers plus the Wrap helper so call sites can tag
//     failures without string formatting conventions.
//   - Classify, which maps any error to a transient or permanent verdict using
//     structured signals first and message markers as a last resort.
package services
