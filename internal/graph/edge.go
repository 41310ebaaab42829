package graph

import (
	"fmt"

	"github.com/specialistvlad/cosimgo/internal/varref"
)

// Edge is one directed connection from an output variable to an input
// variable.
type Edge struct {
	From   varref.Ref
	To     varref.Ref
	Scale  float64
	Offset float64
}

// NewEdge returns an edge with the identity transform.
func NewEdge(from, to varref.Ref) Edge {
	return Edge{From: from, To: to, Scale: 1}
}

// Identity reports whether the edge copies values unchanged.
func (e Edge) Identity() bool {
	return e.Scale == 1 && e.Offset == 0
}

// Transform applies the edge's linear transform to v. The identity transform
// returns v unchanged, bit for bit.
func (e Edge) Transform(v float64) float64 {
	if e.Identity() {
		return v
	}
	return v*e.Scale + e.Offset
}

func (e Edge) String() string {
	if e.Identity() {
		return fmt.Sprintf("%s -> %s", e.From, e.To)
	}
	return fmt.Sprintf("%s -> %s (x%g%+g)", e.From, e.To, e.Scale, e.Offset)
}
