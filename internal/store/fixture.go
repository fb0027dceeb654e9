package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opencitations/time-agnostic-library-sub000/internal/provenance"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/sparql"
)

// Fixture is a YAML description of a present-state dataset and the change
// provenance of its entities.
//
//	base: https://github.com/arcangelo7/time_agnostic/
//	prefixes:
//	  pro: http://purl.org/spar/pro/
//	dataset:
//	  - graph: ar/
//	    data: |
//	      <ar/1> pro:isHeldBy <ra/2> .
//	provenance:
//	  - entity: ar/1
//	    snapshots:
//	      - at: 2021-05-07T09:59:15+00:00
//	        by: https://orcid.org/0000-0002-8420-0696
//	        description: The entity has been created.
//	      - at: 2021-06-01T00:00:00+00:00
//	        update: |
//	          DELETE DATA { GRAPH <ar/> { <ar/1> pro:isHeldBy <ra/1> } };
//	          INSERT DATA { GRAPH <ar/> { <ar/1> pro:isHeldBy <ra/2> } }
type Fixture struct {
	Base       string             `yaml:"base,omitempty"`
	Prefixes   map[string]string  `yaml:"prefixes,omitempty"`
	Dataset    []GraphData        `yaml:"dataset"`
	Provenance []EntityProvenance `yaml:"provenance"`
}

// GraphData holds triples of one named graph in SPARQL triple syntax.
type GraphData struct {
	Graph string `yaml:"graph,omitempty"`
	Data  string `yaml:"data"`
}

// EntityProvenance lists the snapshots of one entity in order. Snapshot
// numbers, derivation links, and invalidation instants are derived.
type EntityProvenance struct {
	Entity    string            `yaml:"entity"`
	Snapshots []SnapshotFixture `yaml:"snapshots"`
}

// SnapshotFixture is one recorded change.
type SnapshotFixture struct {
	At          string `yaml:"at"`
	By          string `yaml:"by,omitempty"`
	Source      string `yaml:"source,omitempty"`
	Description string `yaml:"description,omitempty"`
	Update      string `yaml:"update,omitempty"`

	// Deleted marks the snapshot that removed the entity.
	Deleted bool `yaml:"deleted,omitempty"`
}

// ReadFixture reads and parses a fixture file.
func ReadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture parses fixture YAML. Unknown fields are rejected.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, ep := range f.Provenance {
		if ep.Entity == "" {
			return nil, fmt.Errorf("provenance[%d]: entity is required", i)
		}
		if len(ep.Snapshots) == 0 {
			return nil, fmt.Errorf("provenance[%d]: snapshots list is required and must be non-empty", i)
		}
	}
	return &f, nil
}

// prologue renders the BASE and PREFIX declarations of the fixture.
func (f *Fixture) prologue() string {
	var b strings.Builder
	if f.Base != "" {
		fmt.Fprintf(&b, "BASE <%s>\n", f.Base)
	}
	names := make([]string, 0, len(f.Prefixes))
	for name := range f.Prefixes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "PREFIX %s: <%s>\n", name, f.Prefixes[name])
	}
	return b.String()
}

func (f *Fixture) iri(s string) rdf.IRI {
	if s == "" || f.Base == "" || strings.Contains(s, ":") {
		return rdf.IRI(s)
	}
	return rdf.IRI(f.Base + s)
}

// DatasetQuads returns the present-state quads.
func (f *Fixture) DatasetQuads() ([]rdf.Quad, error) {
	var out []rdf.Quad
	for i, gd := range f.Dataset {
		text := f.prologue() + "INSERT DATA { "
		if gd.Graph != "" {
			text += "GRAPH <" + gd.Graph + "> { " + gd.Data + "\n} }"
		} else {
			text += gd.Data + "\n}"
		}
		u, err := sparql.ParseUpdate(text)
		if err != nil {
			return nil, fmt.Errorf("dataset[%d]: %w", i, err)
		}
		out = append(out, u.Quads()...)
	}
	return out, nil
}

// Snapshots returns the snapshot entities of every entity. Update
// statements are re-rendered with full IRIs so that substring mining
// finds them.
func (f *Fixture) Snapshots() ([]provenance.SnapshotEntity, error) {
	var out []provenance.SnapshotEntity
	for i, ep := range f.Provenance {
		entity := f.iri(ep.Entity)
		ses := make([]provenance.SnapshotEntity, len(ep.Snapshots))
		for j, sf := range ep.Snapshots {
			at, err := provenance.ParseInstant(sf.At)
			if err != nil {
				return nil, fmt.Errorf("provenance[%d].snapshots[%d]: %w", i, j, err)
			}
			se := provenance.SnapshotEntity{
				IRI:           provenance.SnapshotIRI(entity, j+1),
				Entity:        entity,
				GeneratedAt:   at,
				AttributedTo:  f.iri(sf.By),
				PrimarySource: f.iri(sf.Source),
				Description:   sf.Description,
			}
			if j > 0 {
				se.DerivedFrom = ses[j-1].IRI
				if ses[j-1].InvalidatedAt.IsZero() {
					ses[j-1].InvalidatedAt = at
				}
			}
			if sf.Deleted {
				se.InvalidatedAt = at
			}
			if strings.TrimSpace(sf.Update) != "" {
				u, err := sparql.ParseUpdate(f.prologue() + sf.Update)
				if err != nil {
					return nil, fmt.Errorf("provenance[%d].snapshots[%d]: %w", i, j, err)
				}
				se.UpdateQuery = sparql.RenderUpdate(u)
			}
			ses[j] = se
		}
		out = append(out, ses...)
	}
	return out, nil
}

// ProvenanceQuads renders Snapshots as quads.
func (f *Fixture) ProvenanceQuads() ([]rdf.Quad, error) {
	ses, err := f.Snapshots()
	if err != nil {
		return nil, err
	}
	var out []rdf.Quad
	for _, se := range ses {
		out = append(out, se.Quads()...)
	}
	return out, nil
}

// LoadFixture inserts the dataset and provenance quads of f.
func (s *Store) LoadFixture(ctx context.Context, f *Fixture) error {
	data, err := f.DatasetQuads()
	if err != nil {
		return fmt.Errorf("load fixture: %w", err)
	}
	prov, err := f.ProvenanceQuads()
	if err != nil {
		return fmt.Errorf("load fixture: %w", err)
	}
	if err := s.Insert(ctx, append(data, prov...)...); err != nil {
		return fmt.Errorf("load fixture: %w", err)
	}
	return nil
}
