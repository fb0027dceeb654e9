package provenance

import "github.com/opencitations/time-agnostic-library-sub000/internal/rdf"

// UpdateRecord is one update statement found while mining provenance.
type UpdateRecord struct {
	Snapshot rdf.IRI
	Entity   rdf.IRI
	Update   string
}
