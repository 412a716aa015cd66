// Package repositories implements SQLite persistence for the build history.
//
// Repositories handle CRUD operations with atomic sequence generation for human-readable ordering.
// They support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [BuildRepository] : Finished pack builds with their disc records, listed newest first
//
// Sequence numbers provide stable, human-readable ordering (e.g., build #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
