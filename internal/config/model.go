package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/cosimgo/internal/graph"
	"github.com/specialistvlad/cosimgo/internal/scheduler"
	"github.com/specialistvlad/cosimgo/internal/varref"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified representation of one project.
type Model struct {
	Simulation  *Simulation
	Slaves      []*Slave
	Connections []*Connection
}

// Simulation holds the master settings as written. Enumerations stay
// strings until Settings parses them.
type Simulation struct {
	StartTime           float64
	StopTime            float64
	StepSize            float64
	MinStepSize         float64
	MaxStepSize         float64
	FallbackLimit       float64
	RelTol              float64
	AbsTol              float64
	MaxIterations       int
	MasterMode          string
	ErrorControl        string
	AdjustStepSize      bool
	MinOutputInterval   float64
	PreventOverstepping bool

	// File is where the block was declared, empty for defaults.
	File string
}

// Slave is one declared slave instance.
type Slave struct {
	Name string
	// FMU is the binary address as written.
	FMU string
	// Path is the resolved binary address: an absolute path or a
	// builtin: address.
	Path       string
	Parameters map[string]cty.Value
	Inputs     map[string]cty.Value
	File       string
}

// Connection is one declared edge. Scale and Offset default to the
// identity transform.
type Connection struct {
	From   string
	To     string
	Scale  float64
	Offset float64
	File   string
}

// DefaultSimulation returns the settings used when a project has no
// simulation block, or for the attributes a block leaves out.
func DefaultSimulation() *Simulation {
	d := scheduler.DefaultSettings()
	return &Simulation{
		StartTime:           d.StartTime,
		StopTime:            d.StopTime,
		StepSize:            d.StepSize,
		MinStepSize:         d.MinStepSize,
		MaxStepSize:         d.MaxStepSize,
		FallbackLimit:       d.FallbackLimit,
		RelTol:              d.RelTol,
		AbsTol:              d.AbsTol,
		MaxIterations:       d.MaxIterations,
		MasterMode:          d.Mode.String(),
		ErrorControl:        d.ErrorControl.String(),
		AdjustStepSize:      d.AdjustStepSize,
		MinOutputInterval:   d.MinOutputInterval,
		PreventOverstepping: d.PreventOverstepping,
	}
}

// Settings converts the block into scheduler settings and validates them.
func (s *Simulation) Settings() (scheduler.Settings, error) {
	var errs []string
	mode, err := scheduler.ParseMode(s.MasterMode)
	if err != nil {
		errs = append(errs, err.Error())
	}
	ec, err := scheduler.ParseErrorControl(s.ErrorControl)
	if err != nil {
		errs = append(errs, err.Error())
	}
	out := scheduler.Settings{
		StartTime:           s.StartTime,
		StopTime:            s.StopTime,
		StepSize:            s.StepSize,
		MinStepSize:         s.MinStepSize,
		MaxStepSize:         s.MaxStepSize,
		FallbackLimit:       s.FallbackLimit,
		RelTol:              s.RelTol,
		AbsTol:              s.AbsTol,
		MaxIterations:       s.MaxIterations,
		Mode:                mode,
		ErrorControl:        ec,
		AdjustStepSize:      s.AdjustStepSize,
		MinOutputInterval:   s.MinOutputInterval,
		PreventOverstepping: s.PreventOverstepping,
	}
	if err := out.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return out, fmt.Errorf("%s", strings.Join(errs, "\n- "))
	}
	return out, nil
}

// Edge converts the connection into a graph edge.
func (c *Connection) Edge() (graph.Edge, error) {
	from, err := varref.Parse(c.From)
	if err != nil {
		return graph.Edge{}, fmt.Errorf("connection from: %w", err)
	}
	to, err := varref.Parse(c.To)
	if err != nil {
		return graph.Edge{}, fmt.Errorf("connection to: %w", err)
	}
	return graph.Edge{From: from, To: to, Scale: c.Scale, Offset: c.Offset}, nil
}

// SlaveNames returns the declared slave names in declaration order.
func (m *Model) SlaveNames() []string {
	names := make([]string, len(m.Slaves))
	for i, s := range m.Slaves {
		names[i] = s.Name
	}
	return names
}

// Validate checks everything that does not need the slave binaries:
// settings, slave names and addresses, value names and connection syntax.
// All problems are reported in one error.
func (m *Model) Validate() error {
	if errs := m.Problems(); len(errs) > 0 {
		return fmt.Errorf("project configuration is invalid:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// Problems lists what Validate would report, one entry per problem.
func (m *Model) Problems() []string {
	var errs []string

	sim := m.Simulation
	if sim == nil {
		sim = DefaultSimulation()
	}
	if _, err := sim.Settings(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(m.Slaves) == 0 {
		errs = append(errs, "project declares no slaves")
	}
	seen := make(map[string]string, len(m.Slaves))
	for _, s := range m.Slaves {
		if !varref.ValidSlaveName(s.Name) {
			errs = append(errs, fmt.Sprintf("slave %q: invalid name", s.Name))
		}
		if prev, dup := seen[s.Name]; dup {
			errs = append(errs, fmt.Sprintf("slave %q is declared twice (%s and %s)", s.Name, prev, s.File))
		}
		seen[s.Name] = s.File
		if s.Path == "" {
			errs = append(errs, fmt.Sprintf("slave %q: fmu must not be empty", s.Name))
		}
		for _, name := range overlapping(s.Parameters, s.Inputs) {
			errs = append(errs, fmt.Sprintf("slave %q: %q is given both as parameter and input", s.Name, name))
		}
	}

	for i, c := range m.Connections {
		if _, err := c.Edge(); err != nil {
			errs = append(errs, fmt.Sprintf("connection %d (%s): %v", i+1, c.File, err))
		}
	}

	return errs
}

func overlapping(a, b map[string]cty.Value) []string {
	var out []string
	for name := range a {
		if _, ok := b[name]; ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
