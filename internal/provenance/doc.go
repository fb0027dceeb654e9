// Package provenance models the change provenance consumed by the engine.
//
// Every resource <e> owns a chain of snapshot entities <e>/prov/se/<n>.
// Snapshot n records when the change happened (prov:generatedAtTime), who
// made it (prov:wasAttributedTo), where it came from (prov:hadPrimarySource),
// the exact update statement that turned snapshot n-1 into snapshot n
// (oco:hasUpdateQuery), a link to its predecessor (prov:wasDerivedFrom),
// when it stopped being current (prov:invalidatedAtTime), and a
// human-readable dcterms:description.
//
// # Instants
//
// Instants are UTC with second precision. They render with Layout
// ("2006-01-02T15:04:05+00:00") and that string is the key of every
// per-instant map in query results. ParseInstant accepts RFC 3339 with or
// without a zone and date-only input; inputs without a zone are UTC.
package provenance
