package provenance

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/sparql"
)

// SnapshotEntity describes one recorded change to a resource.
type SnapshotEntity struct {
	// IRI is the snapshot entity itself, <e>/prov/se/<n>.
	IRI rdf.IRI

	// Entity is the resource this snapshot specializes.
	Entity rdf.IRI

	GeneratedAt time.Time

	// InvalidatedAt is zero while the snapshot is current.
	InvalidatedAt time.Time

	AttributedTo  rdf.IRI
	PrimarySource rdf.IRI
	DerivedFrom   rdf.IRI

	// UpdateQuery holds the DELETE DATA / INSERT DATA text that turned the
	// previous snapshot into this one. Empty for creation snapshots whose
	// content is the whole present state.
	UpdateQuery string

	Description string
}

// Number returns n for an IRI of the form <e>/prov/se/<n>, or 0.
func (se SnapshotEntity) Number() int {
	return SnapshotNumber(se.IRI)
}

// IsDeletion reports whether the snapshot records the resource's removal:
// it was invalidated at the very instant it was generated.
func (se SnapshotEntity) IsDeletion() bool {
	return !se.InvalidatedAt.IsZero() && se.InvalidatedAt.Equal(se.GeneratedAt)
}

// SnapshotIRI returns the IRI of snapshot n of entity.
func SnapshotIRI(entity rdf.IRI, n int) rdf.IRI {
	return rdf.IRI(fmt.Sprintf("%s/prov/se/%d", string(entity), n))
}

// GraphIRI returns the named graph holding the provenance of entity.
func GraphIRI(entity rdf.IRI) rdf.IRI {
	return entity + "/prov/"
}

// SnapshotNumber extracts n from <e>/prov/se/<n>. It returns 0 when iri is
// not a snapshot entity IRI.
func SnapshotNumber(iri rdf.IRI) int {
	s := string(iri)
	idx := strings.LastIndex(s, "/prov/se/")
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(s[idx+len("/prov/se/"):])
	if err != nil {
		return 0
	}
	return n
}

// EntityOf returns the resource a snapshot entity IRI belongs to.
func EntityOf(se rdf.IRI) (rdf.IRI, bool) {
	s := string(se)
	idx := strings.LastIndex(s, "/prov/se/")
	if idx < 0 {
		return "", false
	}
	return rdf.IRI(s[:idx]), true
}

// Quads renders se as provenance quads in the entity's provenance graph.
func (se SnapshotEntity) Quads() []rdf.Quad {
	g := GraphIRI(se.Entity)
	add := func(out []rdf.Quad, p rdf.IRI, o rdf.Term) []rdf.Quad {
		return append(out, rdf.Quad{Triple: rdf.Triple{S: se.IRI, P: p, O: o}, G: g})
	}

	var out []rdf.Quad
	out = add(out, rdf.RDFType, rdf.ProvEntity)
	out = add(out, rdf.ProvSpecializationOf, se.Entity)
	out = add(out, rdf.ProvGeneratedAtTime, dateTime(se.GeneratedAt))
	if !se.InvalidatedAt.IsZero() {
		out = add(out, rdf.ProvInvalidatedAtTime, dateTime(se.InvalidatedAt))
	}
	if se.AttributedTo != "" {
		out = add(out, rdf.ProvWasAttributedTo, se.AttributedTo)
	}
	if se.PrimarySource != "" {
		out = add(out, rdf.ProvHadPrimarySource, se.PrimarySource)
	}
	if se.DerivedFrom != "" {
		out = add(out, rdf.ProvWasDerivedFrom, se.DerivedFrom)
	}
	if se.UpdateQuery != "" {
		out = add(out, rdf.OCOHasUpdateQuery, rdf.Literal{Value: se.UpdateQuery})
	}
	if se.Description != "" {
		out = add(out, rdf.DCTermsDescription, rdf.Literal{Value: se.Description})
	}
	return out
}

func dateTime(t time.Time) rdf.Literal {
	return rdf.NewLiteral(FormatInstant(t), rdf.XSDDateTime)
}

// Query variables of SnapshotQuery.
const (
	VarSnapshot      rdf.Variable = "se"
	VarGeneratedAt   rdf.Variable = "generatedAt"
	VarInvalidatedAt rdf.Variable = "invalidatedAt"
	VarAttributedTo  rdf.Variable = "attributedTo"
	VarPrimary       rdf.Variable = "primarySource"
	VarDerivedFrom   rdf.Variable = "derivedFrom"
	VarUpdate        rdf.Variable = "updateQuery"
	VarDescription   rdf.Variable = "description"
)

// SnapshotQuery selects every snapshot entity of entity together with its
// optional metadata.
func SnapshotQuery(entity rdf.IRI) *sparql.Query {
	se := VarSnapshot
	q := sparql.NewSelect(
		[]rdf.Variable{se, VarGeneratedAt, VarInvalidatedAt, VarAttributedTo, VarPrimary, VarDerivedFrom, VarUpdate, VarDescription},
		rdf.Triple{S: se, P: rdf.ProvSpecializationOf, O: entity},
		rdf.Triple{S: se, P: rdf.ProvGeneratedAtTime, O: VarGeneratedAt},
	)
	q.WithOptional(rdf.Triple{S: se, P: rdf.ProvInvalidatedAtTime, O: VarInvalidatedAt})
	q.WithOptional(rdf.Triple{S: se, P: rdf.ProvWasAttributedTo, O: VarAttributedTo})
	q.WithOptional(rdf.Triple{S: se, P: rdf.ProvHadPrimarySource, O: VarPrimary})
	q.WithOptional(rdf.Triple{S: se, P: rdf.ProvWasDerivedFrom, O: VarDerivedFrom})
	q.WithOptional(rdf.Triple{S: se, P: rdf.OCOHasUpdateQuery, O: VarUpdate})
	q.WithOptional(rdf.Triple{S: se, P: rdf.DCTermsDescription, O: VarDescription})
	return q
}

// FromBindings decodes the solutions of SnapshotQuery into snapshot
// entities sorted by generation instant, then by snapshot number.
// Duplicate rows for the same snapshot (several descriptions, for
// instance) collapse onto the first value seen per field.
func FromBindings(entity rdf.IRI, rows []sparql.Binding) ([]SnapshotEntity, error) {
	byIRI := map[rdf.IRI]*SnapshotEntity{}
	var order []rdf.IRI

	for _, row := range rows {
		iri, ok := row[VarSnapshot].(rdf.IRI)
		if !ok {
			continue
		}
		se, seen := byIRI[iri]
		if !seen {
			se = &SnapshotEntity{IRI: iri, Entity: entity}
			byIRI[iri] = se
			order = append(order, iri)
		}

		if se.GeneratedAt.IsZero() {
			t, err := literalInstant(row[VarGeneratedAt])
			if err != nil {
				return nil, fmt.Errorf("snapshot %s: generatedAtTime: %w", iri, err)
			}
			se.GeneratedAt = t
		}
		if v, ok := row[VarInvalidatedAt]; ok && se.InvalidatedAt.IsZero() {
			t, err := literalInstant(v)
			if err != nil {
				return nil, fmt.Errorf("snapshot %s: invalidatedAtTime: %w", iri, err)
			}
			se.InvalidatedAt = t
		}
		setIRI(&se.AttributedTo, row[VarAttributedTo])
		setIRI(&se.PrimarySource, row[VarPrimary])
		setIRI(&se.DerivedFrom, row[VarDerivedFrom])
		setText(&se.UpdateQuery, row[VarUpdate])
		setText(&se.Description, row[VarDescription])
	}

	out := make([]SnapshotEntity, 0, len(order))
	for _, iri := range order {
		out = append(out, *byIRI[iri])
	}
	Sort(out)
	return out, nil
}

// Sort orders snapshots by generation instant, then by snapshot number.
func Sort(ses []SnapshotEntity) {
	sort.SliceStable(ses, func(i, j int) bool {
		if !ses[i].GeneratedAt.Equal(ses[j].GeneratedAt) {
			return ses[i].GeneratedAt.Before(ses[j].GeneratedAt)
		}
		return ses[i].Number() < ses[j].Number()
	})
}

func literalInstant(t rdf.Term) (time.Time, error) {
	lit, ok := t.(rdf.Literal)
	if !ok {
		return time.Time{}, fmt.Errorf("expected literal, got %v", t)
	}
	return ParseInstant(lit.Value)
}

func setIRI(dst *rdf.IRI, t rdf.Term) {
	if iri, ok := t.(rdf.IRI); ok && *dst == "" {
		*dst = iri
	}
}

func setText(dst *string, t rdf.Term) {
	if lit, ok := t.(rdf.Literal); ok && *dst == "" {
		*dst = lit.Value
	}
}
