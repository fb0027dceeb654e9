package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/opencitations/time-agnostic-library-sub000/internal/dialect"
	"github.com/opencitations/time-agnostic-library-sub000/internal/provenance"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/sparql"
	"github.com/opencitations/time-agnostic-library-sub000/internal/triplestore"
)

// Select compiles q to SQL and decodes the rows into bindings. Columns
// that are NULL (unbound OPTIONAL variables) are left out of the binding.
func (s *Store) Select(ctx context.Context, q *sparql.Query, graphs ...rdf.IRI) ([]sparql.Binding, error) {
	compiled, err := Compile(q, graphs...)
	if err != nil {
		return nil, s.upstream("select", err)
	}

	rows, err := s.db.QueryContext(ctx, compiled.SQL, compiled.Args...)
	if err != nil {
		return nil, s.upstream("select", err)
	}
	defer rows.Close()

	var out []sparql.Binding
	for rows.Next() {
		cells := make([]sql.NullString, max(len(compiled.Vars), 1))
		dest := make([]any, len(cells))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, s.upstream("select", fmt.Errorf("scan: %w", err))
		}

		b := sparql.Binding{}
		for i, v := range compiled.Vars {
			if !cells[i].Valid {
				continue
			}
			term, err := rdf.ParseTerm(cells[i].String)
			if err != nil {
				return nil, s.upstream("select", fmt.Errorf("decode %s: %w", v, err))
			}
			b[v] = term
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, s.upstream("select", fmt.Errorf("iterate: %w", err))
	}
	return out, nil
}

// Quads returns every quad with the given subject.
// Results are ordered by predicate, object, and graph.
func (s *Store) Quads(ctx context.Context, subject rdf.IRI) ([]rdf.Quad, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s, p, o, g
		FROM quads
		WHERE s = ?
		ORDER BY p COLLATE BINARY ASC, o COLLATE BINARY ASC, g COLLATE BINARY ASC
	`, rdf.Encode(subject))
	if err != nil {
		return nil, s.upstream("quads", err)
	}
	defer rows.Close()

	var out []rdf.Quad
	for rows.Next() {
		q, err := scanQuad(rows)
		if err != nil {
			return nil, s.upstream("quads", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, s.upstream("quads", fmt.Errorf("iterate quads: %w", err))
	}
	return out, nil
}

// MineUpdates finds update statements containing every term with instr().
// SQLite has no full-text index here, so the dialect is not consulted.
func (s *Store) MineUpdates(ctx context.Context, _ dialect.FullTextDialect, terms []rdf.Term) ([]provenance.UpdateRecord, error) {
	var b strings.Builder
	b.WriteString(`
		SELECT u.s, e.o, u.o
		FROM quads AS u
		JOIN quads AS e ON e.s = u.s AND e.p = ?
		WHERE u.p = ?`)
	args := []any{rdf.Encode(rdf.ProvSpecializationOf), rdf.Encode(rdf.OCOHasUpdateQuery)}
	for _, s := range dialect.SearchTerms(terms) {
		b.WriteString(" AND instr(u.o, ?) > 0")
		args = append(args, s)
	}
	b.WriteString(" ORDER BY u.s COLLATE BINARY ASC, e.o COLLATE BINARY ASC")

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, s.upstream("mine", err)
	}
	defer rows.Close()

	var out []provenance.UpdateRecord
	for rows.Next() {
		var se, entity, update string
		if err := rows.Scan(&se, &entity, &update); err != nil {
			return nil, s.upstream("mine", fmt.Errorf("scan: %w", err))
		}
		seTerm, err1 := rdf.ParseTerm(se)
		entityTerm, err2 := rdf.ParseTerm(entity)
		updateTerm, err3 := rdf.ParseTerm(update)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		seIRI, ok1 := seTerm.(rdf.IRI)
		entityIRI, ok2 := entityTerm.(rdf.IRI)
		lit, ok3 := updateTerm.(rdf.Literal)
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		out = append(out, provenance.UpdateRecord{Snapshot: seIRI, Entity: entityIRI, Update: lit.Value})
	}
	if err := rows.Err(); err != nil {
		return nil, s.upstream("mine", fmt.Errorf("iterate: %w", err))
	}
	return triplestore.SortRecords(out), nil
}

// ReplaceGraph deletes the named graph and inserts quads into it, in one
// transaction.
func (s *Store) ReplaceGraph(ctx context.Context, graph rdf.IRI, quads []rdf.Quad) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.upstream("replace", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM quads WHERE g = ?`, rdf.Encode(graph)); err != nil {
		return s.upstream("replace", err)
	}
	for _, q := range quads {
		q.G = graph
		if err := insertQuad(ctx, tx, q); err != nil {
			return s.upstream("replace", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return s.upstream("replace", err)
	}
	return nil
}

// Insert adds quads. Existing quads are silently ignored.
func (s *Store) Insert(ctx context.Context, quads ...rdf.Quad) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.upstream("insert", err)
	}
	defer tx.Rollback()

	for _, q := range quads {
		if err := insertQuad(ctx, tx, q); err != nil {
			return s.upstream("insert", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return s.upstream("insert", err)
	}
	return nil
}

func insertQuad(ctx context.Context, tx *sql.Tx, q rdf.Quad) error {
	if !q.IsGround() {
		return fmt.Errorf("insert %s: quad is not ground", q.Key())
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO quads (s, p, o, g)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, rdf.Encode(q.S), rdf.Encode(q.P), rdf.Encode(q.O), encodeGraph(q.G))
	if err != nil {
		return fmt.Errorf("insert %s: %w", q.Key(), err)
	}
	return nil
}

func encodeGraph(g rdf.IRI) string {
	if g == "" {
		return ""
	}
	return rdf.Encode(g)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuad(row scanner) (rdf.Quad, error) {
	var s, p, o, g string
	if err := row.Scan(&s, &p, &o, &g); err != nil {
		return rdf.Quad{}, fmt.Errorf("scan quad: %w", err)
	}

	var terms [3]rdf.Term
	for i, enc := range []string{s, p, o} {
		t, err := rdf.ParseTerm(enc)
		if err != nil {
			return rdf.Quad{}, fmt.Errorf("decode quad: %w", err)
		}
		terms[i] = t
	}

	q := rdf.Quad{Triple: rdf.Triple{S: terms[0], P: terms[1], O: terms[2]}}
	if g != "" {
		gt, err := rdf.ParseTerm(g)
		if err != nil {
			return rdf.Quad{}, fmt.Errorf("decode graph: %w", err)
		}
		iri, ok := gt.(rdf.IRI)
		if !ok {
			return rdf.Quad{}, fmt.Errorf("decode graph: %q is not an IRI", g)
		}
		q.G = iri
	}
	return q, nil
}
