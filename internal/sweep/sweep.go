// Package sweep expands experiment sweep plans into manifest variants. A
// plan is an HCL document naming a base manifest and one axis per
// hyperparameter to vary:
//
//	sweep "lr" {
//	  base = "configs/yolof_mtsd_color.yaml"
//	  axis "SOLVER.BASE_LR" { values = [0.01, 0.02, 0.04] }
//	  axis "SOLVER.MAX_ITER" { values = [10000, 22500] }
//	}
//
// Expansion takes the cartesian product of the axes. Each variant is written
// as an override-only manifest that inherits from the base via _BASE_, the
// same way a hand-authored experiment config would be laid out.
package sweep

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/reapbench/hparams/internal/fsutil"
)

type planFile struct {
	Sweeps []*sweepBlock `hcl:"sweep,block"`
}

type sweepBlock struct {
	Name string       `hcl:"name,label"`
	Base string       `hcl:"base"`
	Axes []*axisBlock `hcl:"axis,block"`
}

type axisBlock struct {
	Path   string    `hcl:"path,label"`
	Values cty.Value `hcl:"values"`
}

// Plan is a parsed sweep plan.
type Plan struct {
	Path   string
	Sweeps []*Sweep
}

// Sweep is one named sweep: a base manifest and the axes to vary.
type Sweep struct {
	Name string
	// Base is the base manifest path, resolved relative to the plan file.
	Base string
	Axes []Axis
}

// Axis is one hyperparameter dimension of a sweep.
type Axis struct {
	Path   string
	Values []cty.Value
}

// LoadPlan parses and validates the HCL sweep plan at path.
func LoadPlan(path string) (*Plan, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse sweep plan %s: %w", path, diags)
	}

	var parsed planFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode sweep plan %s: %w", path, diags)
	}
	if len(parsed.Sweeps) == 0 {
		return nil, fmt.Errorf("sweep plan %s declares no sweeps", path)
	}

	plan := &Plan{Path: path}
	seen := make(map[string]bool)
	for _, block := range parsed.Sweeps {
		if seen[block.Name] {
			return nil, fmt.Errorf("sweep plan %s: duplicate sweep %q", path, block.Name)
		}
		seen[block.Name] = true

		if block.Base == "" {
			return nil, fmt.Errorf("sweep %q: base manifest is required", block.Name)
		}
		if len(block.Axes) == 0 {
			return nil, fmt.Errorf("sweep %q: at least one axis is required", block.Name)
		}

		s := &Sweep{
			Name: block.Name,
			Base: fsutil.SiblingPath(path, block.Base),
		}
		axisSeen := make(map[string]bool)
		for _, axis := range block.Axes {
			if axisSeen[axis.Path] {
				return nil, fmt.Errorf("sweep %q: duplicate axis %s", block.Name, axis.Path)
			}
			axisSeen[axis.Path] = true

			if !axis.Values.CanIterateElements() || axis.Values.LengthInt() == 0 {
				return nil, fmt.Errorf("sweep %q, axis %s: values must be a non-empty list", block.Name, axis.Path)
			}
			s.Axes = append(s.Axes, Axis{Path: axis.Path, Values: axis.Values.AsValueSlice()})
		}
		plan.Sweeps = append(plan.Sweeps, s)
	}

	return plan, nil
}
