// Package harness runs time-travel query scenarios against the
// orchestrator and compares their output with golden files.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: object_change
//	description: "What this scenario validates"
//	fixture: fixtures/ar.yaml
//	store: sqlite
//	cache: sqlite
//	workers: 1
//	query: |
//	  PREFIX pro: <http://purl.org/spar/pro/>
//	  SELECT ?ra WHERE { <https://example.org/ar/1> pro:isHeldBy ?ra }
//	at: 2021-06-30
//	window:
//	  from: 2021-05-01
//	  to: 2021-06-30
//	assertions:
//	  - type: instants
//	    instants: [2021-05-07T09:59:15+00:00]
//	  - type: rows
//	    at: 2021-05-07T09:59:15+00:00
//	    rows:
//	      - ["<ra/A>"]
//
// The fixture path is resolved relative to the scenario file. Relative
// IRIs in expected rows resolve against the fixture base.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - instants: Verifies the exact list of snapshot instants
//   - rows: Verifies the tuples of one instant, in any order
//   - row_count: Verifies the number of tuples of one instant
//   - error: Verifies the run failed with the named error kind
//
// Error kinds are query_shape, no_snapshot, invalid_instant and upstream.
package harness
