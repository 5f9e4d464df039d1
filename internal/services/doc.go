// Package services defines shared utilities consumed by the ingestion stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp video IDs, stage names, and run identifiers
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent queue statuses (failed vs discarded vs premiered).
//   - Outcome classification that turns raw provider errors into explicit
//     accept/reject/defer/retry decisions.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
