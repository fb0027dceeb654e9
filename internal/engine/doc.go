// Package engine implements the temporal query orchestrator.
//
// A query runs in a session that goes through five phases:
//
//  1. Analyze: the query is decomposed into triple patterns, split into
//     hooks (isolated patterns) and anchored patterns. Shape errors stop
//     the run before any backend access.
//  2. Discover: anchored subjects are rebuilt, and each hook is resolved
//     against the present dataset and the recorded update statements.
//  3. Align: every instant is fully materialized by carrying forward the
//     state each entity had at its latest change.
//  4. Resolve: pending patterns are matched at every instant until no new
//     entity is rebuilt.
//  5. Execute: the query runs against each snapshot; instants that fail
//     are omitted.
//
// SESSION STATE:
//
// RelevantEntities, the per-entity histories and PendingPatternsByTime
// belong to the session and are discarded with it. The SnapshotSink
// holds states either in memory or in a cache triplestore, keyed by the
// named graph <entity>/cache/<instant>.
//
// CONCURRENCY:
//
// A session is driven by one goroutine. Rebuild batches larger than the
// worker threshold are fanned out to a bounded pool; workers share
// nothing and the session merges their histories in entity order.
package engine
