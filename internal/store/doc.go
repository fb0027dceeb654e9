// Package store provides a SQLite-backed quad store that implements
// triplestore.Gateway. It serves file-based datasets, provenance logs, and
// the snapshot cache.
//
// # Layout
//
// A single quads(s, p, o, g) table holds canonical term encodings (see
// rdf.Encode). The default graph is stored as the empty string.
//
// # Deterministic Query Results
//
// Queries are compiled from the sparql AST to parameterized SQL (see
// Compile). Every compiled query ends in ORDER BY over all projected
// columns with COLLATE BINARY, so identical data yields identical rows.
// Term values are always bound as parameters, never interpolated.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - user_version: incremental migrations
package store
