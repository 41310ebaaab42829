package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot is used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Simulations []*Simulation `hcl:"simulation,block"`
	Slaves      []*Slave      `hcl:"slave,block"`
	Connections []*Connection `hcl:"connection,block"`
}

// Simulation is the `simulation` block. Every attribute is optional; absent
// ones keep their default.
type Simulation struct {
	StartTime           *float64 `hcl:"start_time,optional"`
	StopTime            *float64 `hcl:"stop_time,optional"`
	StepSize            *float64 `hcl:"step_size,optional"`
	MinStepSize         *float64 `hcl:"min_step_size,optional"`
	MaxStepSize         *float64 `hcl:"max_step_size,optional"`
	FallbackLimit       *float64 `hcl:"fallback_limit,optional"`
	RelTol              *float64 `hcl:"rel_tol,optional"`
	AbsTol              *float64 `hcl:"abs_tol,optional"`
	MaxIterations       *int     `hcl:"max_iterations,optional"`
	MasterMode          *string  `hcl:"master_mode,optional"`
	ErrorControl        *string  `hcl:"error_control,optional"`
	AdjustStepSize      *bool    `hcl:"adjust_step_size,optional"`
	MinOutputInterval   *float64 `hcl:"min_output_interval,optional"`
	PreventOverstepping *bool    `hcl:"prevent_overstepping_end_time,optional"`

	DeclRange hcl.Range `hcl:",def_range"`
}

// Slave is the `slave "<name>"` block.
type Slave struct {
	Name       string         `hcl:"name,label"`
	FMU        string         `hcl:"fmu"`
	Parameters hcl.Expression `hcl:"parameters,optional"`
	Inputs     hcl.Expression `hcl:"inputs,optional"`

	DeclRange hcl.Range `hcl:",def_range"`
}

// Connection is the `connection` block.
type Connection struct {
	From   string   `hcl:"from"`
	To     string   `hcl:"to"`
	Scale  *float64 `hcl:"scale,optional"`
	Offset *float64 `hcl:"offset,optional"`

	DeclRange hcl.Range `hcl:",def_range"`
}
