// Package store provides SQLite-backed run history for bfvm.
//
// Each finished run is one row in the runs table: the report fields, the
// program and input that produced it, the collected output, and the final
// tape.
//
// # Critical Patterns
//
// Idempotent writes:
//   - runs.id is UNIQUE and inserts use ON CONFLICT DO NOTHING
//   - writing the same record twice leaves one row
//
// Deterministic ordering:
//   - seq INTEGER AUTOINCREMENT is the only ordering key, never timestamps
//   - all list queries use ORDER BY seq ASC
//
// Canonical encodings:
//   - settings are stored as RFC 8785 canonical JSON via ir.MarshalCanonical
//   - tapes are stored as canonical CBOR (github.com/fxamacker/cbor/v2)
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
