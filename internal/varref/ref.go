package varref

import (
	"fmt"
	"regexp"
	"strings"
)

// slaveRegex matches a valid slave name.
var slaveRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// Ref addresses one variable of one slave.
type Ref struct {
	Slave    string
	Variable string
}

// New builds a Ref without validation.
func New(slave, variable string) Ref {
	return Ref{Slave: slave, Variable: variable}
}

// ValidSlaveName reports whether name can be used as the slave part of a Ref.
func ValidSlaveName(name string) bool {
	return slaveRegex.MatchString(name)
}

// Parse creates a Ref from its canonical string representation.
func Parse(raw string) (Ref, error) {
	if raw == "" {
		return Ref{}, fmt.Errorf("variable reference cannot be empty")
	}
	slave, variable, ok := strings.Cut(raw, ".")
	if !ok {
		return Ref{}, fmt.Errorf("variable reference %q must have the form slave.variable", raw)
	}
	if !ValidSlaveName(slave) {
		return Ref{}, fmt.Errorf("variable reference %q: invalid slave name %q", raw, slave)
	}
	if strings.TrimSpace(variable) == "" {
		return Ref{}, fmt.Errorf("variable reference %q: empty variable name", raw)
	}
	return Ref{Slave: slave, Variable: variable}, nil
}

// MustParse is like Parse but panics on error. It is meant for tests and
// static tables.
func MustParse(raw string) Ref {
	r, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return r
}

// String serializes the Ref into its canonical form.
func (r Ref) String() string {
	if r.Slave == "" && r.Variable == "" {
		return ""
	}
	return r.Slave + "." + r.Variable
}

// Equal reports whether both references address the same variable.
func (r Ref) Equal(other Ref) bool {
	return r == other
}

// IsZero reports whether r is the zero Ref.
func (r Ref) IsZero() bool {
	return r == Ref{}
}
