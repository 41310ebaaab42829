// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package fmi

import (
	"fmt"
)

// Descriptor is the immutable self-description of one slave binary. Several
// slave instances of a project may share one Descriptor.
type Descriptor struct {
	// Path is the absolute path (or builtin: address) the descriptor was
	// resolved from. It is the cache key.
	Path            string
	FMIVersion      string
	ModelName       string
	ModelIdentifier string
	GUID            string
	Kinds           Kind
	Capabilities    Capabilities

	// Variables holds the accepted variables in document order.
	Variables []*Variable
	// Rejected holds one error per variable that was dropped while parsing.
	Rejected []error

	// Root is the directory the archive was unpacked to, if any.
	Root string
	// BinaryPath is the shared library for the current platform, if any.
	BinaryPath string

	byName map[string]*Variable
}

// index builds the name lookup table. It is called once by every
// constructor before the descriptor is shared.
func (d *Descriptor) index() {
	d.byName = make(map[string]*Variable, len(d.Variables))
	for _, v := range d.Variables {
		d.byName[v.Name] = v
	}
}

// NewDescriptor assembles a descriptor from already-validated variables.
// Variables failing Validate or duplicating a name are moved to Rejected.
func NewDescriptor(path, identifier, guid string, kinds Kind, caps Capabilities, vars []*Variable) *Descriptor {
	d := &Descriptor{
		Path:            path,
		FMIVersion:      "2.0",
		ModelName:       identifier,
		ModelIdentifier: identifier,
		GUID:            guid,
		Kinds:           kinds,
		Capabilities:    caps,
	}
	seen := make(map[string]struct{}, len(vars))
	for _, v := range vars {
		if err := v.Validate(); err != nil {
			d.Rejected = append(d.Rejected, err)
			continue
		}
		if _, dup := seen[v.Name]; dup {
			d.Rejected = append(d.Rejected, fmt.Errorf("variable %q is declared more than once", v.Name))
			continue
		}
		seen[v.Name] = struct{}{}
		d.Variables = append(d.Variables, v)
	}
	d.index()
	return d
}

// Variable returns the variable with the given name.
func (d *Descriptor) Variable(name string) (*Variable, bool) {
	if d.byName == nil {
		for _, v := range d.Variables {
			if v.Name == name {
				return v, true
			}
		}
		return nil, false
	}
	v, ok := d.byName[name]
	return v, ok
}

// Lookup resolves a (type, value reference) pair. Value references are only
// unique per type and causality class, so when several variables share the
// pair the one with output causality wins; otherwise the first declared.
func (d *Descriptor) Lookup(t Type, vr uint32) (*Variable, bool) {
	var first *Variable
	for _, v := range d.Variables {
		if v.Type != t || v.ValueReference != vr {
			continue
		}
		if v.Causality == Output {
			return v, true
		}
		if first == nil {
			first = v
		}
	}
	return first, first != nil
}

// ByCausality returns the variables with causality c in document order.
func (d *Descriptor) ByCausality(c Causality) []*Variable {
	var out []*Variable
	for _, v := range d.Variables {
		if v.Causality == c {
			out = append(out, v)
		}
	}
	return out
}

// SupportsCoSimulation reports whether the binary can be driven by a master.
func (d *Descriptor) SupportsCoSimulation() bool {
	return d.Kinds.Has(CoSimulation)
}
