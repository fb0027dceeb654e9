// Package triplestore defines the Gateway contract the engine uses to talk
// to dataset, provenance, and cache stores.
//
// Implementations:
//   - Memory: an in-process quad set, used by tests and YAML fixtures
//   - store.Store: a SQLite-backed file store (internal/store)
//   - sparqlhttp.Client: a SPARQL 1.1 protocol endpoint (internal/sparqlhttp)
//   - Multi: the de-duplicated union of several gateways
//
// Every backend failure is reported as an *UpstreamError. The engine does
// not retry; transports may retry below this layer.
package triplestore
