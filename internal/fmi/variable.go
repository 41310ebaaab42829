// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package fmi

import (
	"errors"
	"fmt"
)

// Variable is one exposed quantity of a slave.
type Variable struct {
	Name           string
	ValueReference uint32
	Type           Type
	Causality      Causality
	// Variability is kept verbatim; it is informational for the master.
	Variability  string
	Unit         string // Real only
	DeclaredType string
	Start        *string
	Description  string
	// Enumeration is true when the variable was declared as an FMI
	// Enumeration; it is handled as an Integer.
	Enumeration bool
}

// NeedsStart reports whether the description format requires a start value.
func (v *Variable) NeedsStart() bool {
	return v.Causality == Input || v.Causality == Parameter
}

// Validate checks the invariants that do not depend on sibling variables.
func (v *Variable) Validate() error {
	if v.Name == "" {
		return errors.New("variable has an empty name")
	}
	if v.Unit != "" && v.Type != Real {
		return fmt.Errorf("variable %q: unit %q is only allowed on Real variables", v.Name, v.Unit)
	}
	if v.NeedsStart() && v.Start == nil {
		return fmt.Errorf("variable %q: %s variable requires a start value", v.Name, v.Causality)
	}
	return nil
}

func (v *Variable) String() string {
	return fmt.Sprintf("%s(%s %s vr=%d)", v.Name, v.Causality, v.Type, v.ValueReference)
}

// StartOr returns the start value or def when none is declared.
func (v *Variable) StartOr(def string) string {
	if v.Start == nil {
		return def
	}
	return *v.Start
}
