package triplestore

import (
	"context"

	"github.com/opencitations/time-agnostic-library-sub000/internal/dialect"
	"github.com/opencitations/time-agnostic-library-sub000/internal/provenance"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/sparql"
)

// Gateway reads from and writes to one logical triplestore.
type Gateway interface {
	// Select evaluates q. When graphs is non-empty the default graph is the
	// union of those named graphs; otherwise every quad is visible.
	Select(ctx context.Context, q *sparql.Query, graphs ...rdf.IRI) ([]sparql.Binding, error)

	// Quads returns every quad whose subject is subject, in any graph.
	Quads(ctx context.Context, subject rdf.IRI) ([]rdf.Quad, error)

	// MineUpdates returns the provenance update statements that mention
	// the lexical form of every term in terms. The dialect is honored by
	// backends with a full-text index; others fall back to substring
	// matching.
	MineUpdates(ctx context.Context, d dialect.FullTextDialect, terms []rdf.Term) ([]provenance.UpdateRecord, error)

	// ReplaceGraph overwrites the named graph with quads. Quads are stored
	// in graph regardless of their own G.
	ReplaceGraph(ctx context.Context, graph rdf.IRI, quads []rdf.Quad) error

	Close() error
}
