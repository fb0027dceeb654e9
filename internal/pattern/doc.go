// Package pattern decomposes a query into triple patterns and classifies
// each pattern as isolated or anchored.
//
// An anchored pattern is reachable from a bound subject IRI through a chain
// of object-to-subject links, so its variables can be grounded by walking
// entity histories outward from that subject. An isolated pattern has no
// such chain; it is a hook from which the engine must discover entities on
// its own (present-state lookup plus update-statement mining).
//
// Example:
//
//	<ar/1> pro:isHeldBy ?ra .      anchored (bound subject)
//	?ra foaf:name ?name .          anchored (?ra closed by the first pattern)
//	?doc dcterms:title "Ada" .     isolated (nothing links ?doc to a bound subject)
//
// Analysis is pure and runs before any backend access, so shape errors are
// reported without touching a triplestore.
package pattern
