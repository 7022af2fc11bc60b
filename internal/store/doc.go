// Package store provides SQLite-backed durable storage for migration run logs.
//
// The store keeps an append-only log with:
//   - Runs: one record per migration run over a translation unit
//   - Rewrites: the outcome of each call site, keyed by content-addressed site ID
//   - Feature usage: the first use of each helper feature within a run
//
// # Patterns
//
// Idempotent writes
//   - Every insert uses ON CONFLICT DO NOTHING
//   - Recording a site or feature twice within a run keeps the first record
//
// Logical time
//   - All ordering uses seq INTEGER (logical clock), never timestamps
//   - Queries order by seq ASC with a binary-collated tiebreak
//
// # Database Configuration
//
//   - WAL mode (file-backed logs): report reads while rewrite writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// # Schema Versions
//
// PRAGMA user_version tracks the applied migration steps. Older logs are
// upgraded on open; logs from a newer build are refused with ErrNewerLog.
// Read-only commands use OpenExisting, which never creates a log.
//
// Site IDs are computed by ir.CallSiteID using RFC 8785 canonical JSON and
// SHA-256 with domain separation.
package store
