package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/sparql"
)

// Compiled is a parameterized SQL rendering of a query.
type Compiled struct {
	SQL  string
	Args []any

	// Vars are the output variables; result column i holds Vars[i].
	Vars []rdf.Variable
}

// column is the SQL expression a variable is read from. nullable is set
// when the variable was bound inside an OPTIONAL block.
type column struct {
	expr     string
	nullable bool
}

type compiler struct {
	graphs  []rdf.IRI
	aliases int
}

// Compile converts q to parameterized SQL over the quads table.
//
// Required patterns become inner self-joins. Each OPTIONAL block becomes a
// LEFT JOIN against a DISTINCT subquery of its own patterns, joined on the
// shared variables with SPARQL compatibility (an unbound side matches
// anything). When graphs is non-empty every pattern is restricted to quads
// in those graphs.
//
// MANDATORY: every query ends in ORDER BY over all output columns with
// COLLATE BINARY.
// MANDATORY: all term values are parameterized, never interpolated.
func Compile(q *sparql.Query, graphs ...rdf.IRI) (*Compiled, error) {
	if q == nil || q.Where == nil {
		return nil, fmt.Errorf("cannot compile query without a WHERE clause")
	}

	c := &compiler{graphs: graphs}
	body, args, cols := c.group(q.Where)

	vars := q.Variables()
	selects := make([]string, len(vars))
	order := make([]string, len(vars))
	for i, v := range vars {
		expr := "NULL"
		if col, ok := cols[v]; ok {
			expr = col.expr
		}
		selects[i] = fmt.Sprintf("%s AS c%d", expr, i)
		order[i] = fmt.Sprintf("c%d COLLATE BINARY", i)
	}
	if len(vars) == 0 {
		selects = []string{"1 AS c0"}
		order = []string{"c0"}
	}

	sql := fmt.Sprintf("SELECT DISTINCT %s %s ORDER BY %s",
		strings.Join(selects, ", "), body, strings.Join(order, ", "))
	return &Compiled{SQL: sql, Args: args, Vars: vars}, nil
}

// clause accumulates AND-ed conditions and their parameters.
type clause struct {
	conds []string
	args  []any
}

func (cl *clause) eq(expr string, arg any) {
	cl.conds = append(cl.conds, expr+" = ?")
	cl.args = append(cl.args, arg)
}

func (cl *clause) raw(cond string) {
	cl.conds = append(cl.conds, cond)
}

func (cl *clause) sql() string {
	if len(cl.conds) == 0 {
		return "1 = 1"
	}
	return strings.Join(cl.conds, " AND ")
}

// group renders "FROM ... [WHERE ...]" for g and returns the parameters in
// textual order together with the columns of every variable g binds.
func (c *compiler) group(g *sparql.Group) (string, []any, map[rdf.Variable]column) {
	cols := map[rdf.Variable]column{}
	var b strings.Builder
	var args []any
	var first clause

	var triples []rdf.Triple
	if g.BGP != nil {
		triples = g.BGP.Triples
	}

	if len(triples) == 0 {
		fmt.Fprintf(&b, "FROM (SELECT 1) AS %s", c.alias("u"))
	}
	for i, t := range triples {
		alias := c.alias("t")
		if i == 0 {
			fmt.Fprintf(&b, "FROM quads AS %s", alias)
			c.pattern(t.Normalize(), alias, cols, &first)
			continue
		}
		var on clause
		c.pattern(t.Normalize(), alias, cols, &on)
		fmt.Fprintf(&b, " JOIN quads AS %s ON %s", alias, on.sql())
		args = append(args, on.args...)
	}

	for _, opt := range g.Optionals {
		innerBody, innerArgs, innerCols := c.group(opt.Group)
		alias := c.alias("o")

		names := sortedVars(innerCols)
		selects := make([]string, 0, len(names))
		for i, v := range names {
			selects = append(selects, fmt.Sprintf("%s AS v%d", innerCols[v].expr, i))
		}
		if len(selects) == 0 {
			selects = append(selects, "1 AS v0")
		}

		var on clause
		for i, v := range names {
			inner := column{expr: fmt.Sprintf("%s.v%d", alias, i), nullable: true}
			outer, shared := cols[v]
			if !shared {
				cols[v] = inner
				continue
			}
			if outer.nullable {
				on.raw(fmt.Sprintf("(%s IS NULL OR %s IS NULL OR %s = %s)", outer.expr, inner.expr, inner.expr, outer.expr))
				cols[v] = column{expr: fmt.Sprintf("COALESCE(%s, %s)", outer.expr, inner.expr), nullable: true}
			} else {
				on.raw(fmt.Sprintf("(%s IS NULL OR %s = %s)", inner.expr, inner.expr, outer.expr))
			}
		}

		fmt.Fprintf(&b, " LEFT JOIN (SELECT DISTINCT %s %s) AS %s ON %s",
			strings.Join(selects, ", "), innerBody, alias, on.sql())
		args = append(args, innerArgs...)
	}

	if len(first.conds) > 0 {
		fmt.Fprintf(&b, " WHERE %s", first.sql())
		args = append(args, first.args...)
	}
	return b.String(), args, cols
}

// pattern adds the conditions matching t against the quads row alias.
func (c *compiler) pattern(t rdf.Triple, alias string, cols map[rdf.Variable]column, cl *clause) {
	positions := [3]string{alias + ".s", alias + ".p", alias + ".o"}
	for i, term := range t.Terms() {
		expr := positions[i]
		v, isVar := term.(rdf.Variable)
		if !isVar {
			cl.eq(expr, rdf.Encode(term))
			continue
		}
		col, bound := cols[v]
		switch {
		case !bound:
			cols[v] = column{expr: expr}
		case col.nullable:
			cl.raw(fmt.Sprintf("(%s IS NULL OR %s = %s)", col.expr, expr, col.expr))
			cols[v] = column{expr: expr}
		default:
			cl.raw(fmt.Sprintf("%s = %s", expr, col.expr))
		}
	}

	if len(c.graphs) > 0 {
		marks := make([]string, len(c.graphs))
		for i, g := range c.graphs {
			marks[i] = "?"
			cl.args = append(cl.args, rdf.Encode(g))
		}
		cl.raw(fmt.Sprintf("%s.g IN (%s)", alias, strings.Join(marks, ", ")))
	}
}

func (c *compiler) alias(prefix string) string {
	c.aliases++
	return fmt.Sprintf("%s%d", prefix, c.aliases)
}

func sortedVars(cols map[rdf.Variable]column) []rdf.Variable {
	out := make([]rdf.Variable, 0, len(cols))
	for v := range cols {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
