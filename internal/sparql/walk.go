package sparql

// Walk traverses the AST depth-first in document order, calling fn for
// each node. If fn returns false the children of that node are skipped.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}

	switch node := n.(type) {
	case *Query:
		if node.Where != nil {
			Walk(node.Where, fn)
		}
	case *Group:
		if node.BGP != nil {
			Walk(node.BGP, fn)
		}
		for _, opt := range node.Optionals {
			Walk(opt, fn)
		}
	case *Optional:
		if node.Group != nil {
			Walk(node.Group, fn)
		}
	case *BGP:
		// Leaf
	}
}
