package graph

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/cosimgo/internal/fmi"
	"github.com/specialistvlad/cosimgo/internal/varref"
)

// Validate classifies every edge against the descriptors of the declared
// slaves. A slave missing from descriptors is undeclared; a slave mapped to a
// nil descriptor is declared but not resolved yet.
//
// Each edge is checked in a fixed order: target side, fan-in, source side,
// then type compatibility. The first failing check decides the status. An
// edge claims its target as soon as the target is a valid inlet, so of two
// edges sharing a target the second one is always TargetAlreadyConnected.
func Validate(edges []Edge, descriptors map[string]*fmi.Descriptor) []Result {
	results := make([]Result, len(edges))
	claimed := make(map[varref.Ref]int, len(edges))

	for i, e := range edges {
		results[i] = Result{Edge: e}
		res := &results[i]

		target, st, reason := resolve(e.To, descriptors, fmi.Input)
		if st != StatusOK {
			if st == wrongCausality {
				st = StatusTargetNotAnInlet
			}
			res.Status, res.Reason = st, "target "+reason
			continue
		}
		if prev, ok := claimed[e.To]; ok {
			res.Status = StatusTargetAlreadyConnected
			res.Reason = fmt.Sprintf("input %s is already fed by %s", e.To, edges[prev].From)
			continue
		}
		claimed[e.To] = i

		source, st, reason := resolve(e.From, descriptors, fmi.Output)
		if st != StatusOK {
			if st == wrongCausality {
				st = StatusSourceNotAnOutlet
			}
			res.Status, res.Reason = st, "source "+reason
			continue
		}

		if reason := incompatible(e, source, target); reason != "" {
			res.Status, res.Reason = StatusInvalid, reason
		}
	}
	return results
}

// wrongCausality is an internal marker translated by the caller into the
// side-specific status.
const wrongCausality Status = -1

func resolve(ref varref.Ref, descriptors map[string]*fmi.Descriptor, want fmi.Causality) (*fmi.Variable, Status, string) {
	desc, declared := descriptors[ref.Slave]
	if !declared {
		return nil, StatusInvalid, fmt.Sprintf("slave %q is not declared", ref.Slave)
	}
	if desc == nil {
		return nil, StatusUndetermined, fmt.Sprintf("slave %q has no resolved descriptor", ref.Slave)
	}
	v, ok := desc.Variable(ref.Variable)
	if !ok {
		return nil, StatusInvalid, fmt.Sprintf("slave %q has no variable %q", ref.Slave, ref.Variable)
	}
	if v.Causality != want {
		return nil, wrongCausality, fmt.Sprintf("%s has causality %s, want %s", ref, v.Causality, want)
	}
	return v, StatusOK, ""
}

func incompatible(e Edge, source, target *fmi.Variable) string {
	switch {
	case source.Type == target.Type:
	case source.Type == fmi.Integer && target.Type == fmi.Real:
	default:
		return fmt.Sprintf("cannot connect %s %s to %s %s", source.Type, e.From, target.Type, e.To)
	}
	if !e.Identity() && (target.Type == fmi.Boolean || target.Type == fmi.String) {
		return fmt.Sprintf("scale and offset are not allowed on %s connection %s", target.Type, e)
	}
	return ""
}

// ConfigErrors aggregates every fatal result into one error. It returns nil
// when the remaining results are all OK or undetermined.
func ConfigErrors(results []Result) error {
	var errs []string
	for _, r := range results {
		if r.Status.Fatal() {
			errs = append(errs, fmt.Sprintf("connection %s: %s: %s", r.Edge, r.Status, r.Reason))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("connection validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// Accepted returns the edges whose status is OK, in input order.
func Accepted(results []Result) []Edge {
	var out []Edge
	for _, r := range results {
		if r.Status == StatusOK {
			out = append(out, r.Edge)
		}
	}
	return out
}
