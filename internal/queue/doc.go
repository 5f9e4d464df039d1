// Package queue persists submitted sets in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, status transitions, the optimistic claim used by concurrent
// workers, and the premiere sweep. Entries record submission preferences,
// cached video metadata, and terminal reasons so the queue doubles as the
// submission ledger; entries are never deleted by the pipeline itself.
//
// Treat this package as the single source of truth for queue semantics; when
// you add new statuses or columns, update schema.sql and bump schemaVersion.
package queue
