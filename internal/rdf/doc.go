// Package rdf provides the RDF term model shared by every other package.
//
// This package imports nothing internal. Terms form a sealed union
// (IRI, Literal, BlankNode, Variable, InversePath) so consumers can use
// exhaustive type switches.
//
// Every ground term has exactly one canonical encoding (N-Triples form,
// NFC-normalized literal lexical values). The encoding doubles as the
// identity key for graph membership and as the storage form in the
// SQLite store, so two terms are equal if and only if their encodings are.
package rdf
