// Package lint checks the semantic invariants of a resolved manifest: the
// cross-key relationships that a schema type check cannot see, like size
// bounds ordering, decay steps falling inside the training horizon, or two
// image-size transforms fighting over the input pipeline.
package lint

import (
	"context"
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/reapbench/hparams/internal/ctxlog"
	"github.com/reapbench/hparams/internal/resolve"
)

// Severity grades a finding.
type Severity int

const (
	// SeverityWarning marks a suspicious but runnable configuration.
	SeverityWarning Severity = iota
	// SeverityError marks a configuration the trainer would reject or
	// silently mistrain on.
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Finding is a single invariant violation, tied to the key path that
// triggered it.
type Finding struct {
	Severity Severity
	Path     string
	Message  string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s: %s", f.Severity, f.Path, f.Message)
}

// HasErrors reports whether any finding is of error severity.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

type rule func(flat map[string]cty.Value) []Finding

var rules = []rule{
	checkSizeOrdering,
	checkSolverSteps,
	checkWarmup,
	checkCheckpointPeriod,
	checkTransformConflict,
	checkRepeatFactorSampler,
	checkClipGradients,
	checkPositives,
}

// Run evaluates every rule against the resolved manifest and returns the
// findings sorted by key path.
func Run(ctx context.Context, res *resolve.Resolved) ([]Finding, error) {
	logger := ctxlog.FromContext(ctx)

	flat, err := res.Flatten()
	if err != nil {
		return nil, fmt.Errorf("failed to read values of %s: %w", res.Path, err)
	}

	var findings []Finding
	for _, r := range rules {
		findings = append(findings, r(flat)...)
	}
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Path != findings[j].Path {
			return findings[i].Path < findings[j].Path
		}
		return findings[i].Message < findings[j].Message
	})

	logger.Debug("Lint finished.", "path", res.Path, "findings", len(findings))
	return findings, nil
}

// --- value helpers ---

func number(flat map[string]cty.Value, path string) (float64, bool) {
	v, ok := flat[path]
	if !ok || v.IsNull() || v.Type() != cty.Number {
		return 0, false
	}
	f, _ := v.AsBigFloat().Float64()
	return f, true
}

func boolean(flat map[string]cty.Value, path string) (bool, bool) {
	v, ok := flat[path]
	if !ok || v.IsNull() || v.Type() != cty.Bool {
		return false, false
	}
	return v.True(), true
}

func numberTuple(flat map[string]cty.Value, path string) ([]float64, bool) {
	v, ok := flat[path]
	if !ok || v.IsNull() || !v.Type().IsTupleType() {
		return nil, false
	}
	elems := v.AsValueSlice()
	out := make([]float64, 0, len(elems))
	for _, elem := range elems {
		if elem.Type() != cty.Number {
			return nil, false
		}
		f, _ := elem.AsBigFloat().Float64()
		out = append(out, f)
	}
	return out, true
}
