// Package store provides a SQLite-backed library of named series definitions.
//
// The library stores declarative specs, never computed results:
//   - series_specs: the current spec for each name
//   - spec_revisions: every distinct spec ever saved under a name
//
// # Critical Patterns
//
// Content Identity:
//   - Specs are stored as RFC 8785 canonical JSON
//   - content_hash is ir.SpecHash of the spec
//   - Saving an identical spec is a no-op
//
// Logical Ordering:
//   - Revisions are ordered by seq INTEGER (logical clock), never timestamps
//   - Listing queries use ORDER BY ... COLLATE BINARY for stable output
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Revisions are deleted with their spec
package store
