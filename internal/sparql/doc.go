// Package sparql implements the query-language subset the engine accepts.
//
// The supported fragment is deliberately small:
//
//	PREFIX/BASE declarations
//	SELECT [DISTINCT] (?v ... | *) WHERE { triples OPTIONAL { ... } }
//
// and, for provenance update statements,
//
//	DELETE DATA { GRAPH <g> { triples } } ; INSERT DATA { ... }
//
// Parsing produces a typed AST built once: Query holds a Group, a Group
// holds one BGP and zero or more Optional nodes, and an Optional wraps a
// nested Group. Node is a sealed interface (marker method pattern) so
// consumers can switch exhaustively; Walk is the single generic traversal
// every consumer uses instead of ad hoc recursion.
//
// Anything outside the fragment (FILTER, UNION, GRAPH in queries, solution
// modifiers, property paths other than ^) is a *SyntaxError.
package sparql
