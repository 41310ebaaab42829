// Package graph holds the directed connections between slave outputs and
// slave inputs, and the validator that classifies them against the slave
// descriptors.
//
// # Edges
//
// An Edge copies one output variable into one input variable, optionally
// through a linear transform:
//
//	target = source*Scale + Offset
//
// An output may feed any number of edges; an input accepts at most one.
//
// # Validation
//
// Validate never stops at the first bad edge. It classifies every edge and
// returns one Result per edge, in input order, so the caller can both run a
// partially connected project and report every problem at once:
//
//	results := graph.Validate(edges, descriptors)
//	if err := graph.ConfigErrors(results); err != nil {
//	    return err // aggregate, one bullet per bad edge
//	}
//
// StatusUndetermined means the descriptor of one side was not available yet;
// such edges may be dropped with a warning. Every other non-OK status is a
// hard configuration error.
//
// # Graph
//
// Graph is the read-only view the scheduler uses during a run: the accepted
// edges, indexed per target slave, plus the slave-level algebraic loops.
package graph
