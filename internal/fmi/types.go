// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package fmi

import "fmt"

// Type is the data type of a variable as exposed by a slave.
type Type int

const (
	Real Type = iota
	Integer
	Boolean
	String
)

func (t Type) String() string {
	switch t {
	case Real:
		return "Real"
	case Integer:
		return "Integer"
	case Boolean:
		return "Boolean"
	case String:
		return "String"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Causality is the role of a variable.
type Causality int

const (
	Other Causality = iota
	Input
	Output
	Parameter
	Internal
)

func (c Causality) String() string {
	switch c {
	case Input:
		return "input"
	case Output:
		return "output"
	case Parameter:
		return "parameter"
	case Internal:
		return "internal"
	default:
		return "other"
	}
}

// parseCausality maps the attribute spelling of both FMI 1.0 and 2.0 onto
// Causality. Unknown or empty spellings are Other.
func parseCausality(s string) Causality {
	switch s {
	case "input":
		return Input
	case "output":
		return Output
	case "parameter", "calculatedParameter", "structuralParameter":
		return Parameter
	case "internal", "local":
		return Internal
	default:
		return Other
	}
}

// Kind is a bit set of the interface flavours a binary implements.
type Kind uint8

const (
	ModelExchange Kind = 1 << iota
	CoSimulation
)

// Has reports whether every bit of other is set in k.
func (k Kind) Has(other Kind) bool { return k&other == other }

func (k Kind) String() string {
	switch k {
	case ModelExchange:
		return "ModelExchange"
	case CoSimulation:
		return "CoSimulation"
	case ModelExchange | CoSimulation:
		return "ModelExchange|CoSimulation"
	default:
		return "None"
	}
}

// Capabilities are the optional co-simulation features a binary declares.
type Capabilities struct {
	CanHandleVariableStep bool
	CanGetAndSetState     bool
	CanSerializeState     bool
}
