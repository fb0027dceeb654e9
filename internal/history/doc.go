// Package history reconstructs the past states of a resource.
//
// The present state is read from the dataset and the recorded update
// statements are replayed backwards: an INSERT DATA is removed and a
// DELETE DATA is re-added. States contain only quads whose subject is the
// resource. Graph names are dropped, so a state is a plain set of triples
// and the same replay works on triple stores and quad stores alike.
package history
