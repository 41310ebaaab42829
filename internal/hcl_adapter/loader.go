package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/cosimgo/internal/config"
	"github.com/specialistvlad/cosimgo/internal/ctxlog"
	"github.com/specialistvlad/cosimgo/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL project loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load parses every .hcl file under paths and merges their blocks into one
// model. At most one simulation block may exist across all files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := fsutil.CollectFiles(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(hclFiles) == 0 {
		return nil, fmt.Errorf("no .hcl project files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	model := &config.Model{Simulation: config.DefaultSimulation()}
	var simulationFrom *hcl.Range
	parser := hclparse.NewParser()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, sim := range root.Simulations {
			if simulationFrom != nil {
				return nil, fmt.Errorf("%s: duplicate simulation block, first declared at %s", sim.DeclRange, simulationFrom)
			}
			r := sim.DeclRange
			simulationFrom = &r
			l.translateSimulation(sim, model.Simulation)
		}
		for _, s := range root.Slaves {
			translated, err := l.translateSlave(ctx, s)
			if err != nil {
				return nil, err
			}
			model.Slaves = append(model.Slaves, translated)
		}
		for _, c := range root.Connections {
			model.Connections = append(model.Connections, l.translateConnection(c))
		}
	}

	logger.Debug("HCL loading complete.",
		"files", len(hclFiles),
		"slaves", len(model.Slaves),
		"connections", len(model.Connections),
		"simulation_block", simulationFrom != nil,
	)
	return model, nil
}
