// Package store records query runs in SQLite.
//
// A run is one evaluation of a named pipeline over a list of inputs. The
// store keeps:
//   - Runs: pipeline name, graph fingerprint, status and error
//   - Inputs: the source of every input of a run, in evaluation order
//   - Results: every value emitted for an input, as canonical JSON
//
// # Ordering
//
// Runs are ordered by a logical seq, never by wall time, so listings are
// stable across machines and replays. Results are ordered by
// (input, seq), the order in which the pipeline emitted them.
//
// # Database Configuration
//
// Every connection is opened in WAL mode with synchronous=NORMAL, a
// five-second busy timeout and foreign keys enforced. The schema version
// lives in PRAGMA user_version; a newer database is refused.
package store
