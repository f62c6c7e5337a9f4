package sweep

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	"github.com/reapbench/hparams/internal/ctxlog"
	"github.com/reapbench/hparams/internal/manifest"
	"github.com/reapbench/hparams/internal/registry"
	"github.com/reapbench/hparams/internal/resolve"
)

// Override is one key set by a variant.
type Override struct {
	Path  string
	Value cty.Value
}

// Variant is a single point of the sweep grid.
type Variant struct {
	// Name is the variant's file-safe identifier, derived from the sweep
	// name and its axis values.
	Name      string
	Overrides []Override
}

// Expand enumerates the cartesian product of the sweep's axes, in axis
// order with the last axis varying fastest.
func (s *Sweep) Expand() []Variant {
	total := 1
	for _, axis := range s.Axes {
		total *= len(axis.Values)
	}

	variants := make([]Variant, 0, total)
	indices := make([]int, len(s.Axes))
	for {
		v := Variant{Overrides: make([]Override, len(s.Axes))}
		for i, axis := range s.Axes {
			v.Overrides[i] = Override{Path: axis.Path, Value: axis.Values[indices[i]]}
		}
		v.Name = s.variantName(v.Overrides)
		variants = append(variants, v)

		// Advance the odometer.
		i := len(indices) - 1
		for ; i >= 0; i-- {
			indices[i]++
			if indices[i] < len(s.Axes[i].Values) {
				break
			}
			indices[i] = 0
		}
		if i < 0 {
			return variants
		}
	}
}

func (s *Sweep) variantName(overrides []Override) string {
	parts := []string{s.Name}
	for _, o := range overrides {
		segs := strings.Split(o.Path, ".")
		key := strings.ToLower(segs[len(segs)-1])
		parts = append(parts, key+"_"+sanitize(manifest.FormatValue(o.Value)))
	}
	return strings.Join(parts, "-")
}

// sanitize keeps variant names usable as file names.
func sanitize(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			sb.WriteRune(r)
		default:
			// dropped: quotes, parens, spaces
		}
	}
	return sb.String()
}

// Write expands every sweep in the plan and writes one override-only
// manifest per variant into outDir. Each variant is validated against the
// registry before anything is written; a single bad grid point fails the
// whole plan rather than leaving a half-usable sweep directory.
func (p *Plan) Write(ctx context.Context, reg *registry.Registry, outDir string) ([]string, error) {
	logger := ctxlog.FromContext(ctx)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sweep output dir %s: %w", outDir, err)
	}
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sweep output dir %s: %w", outDir, err)
	}

	type pending struct {
		path string
		data []byte
	}
	var files []pending

	for _, s := range p.Sweeps {
		base, err := resolve.File(ctx, s.Base)
		if err != nil {
			return nil, fmt.Errorf("sweep %q: %w", s.Name, err)
		}

		// The variants inherit via a relative reference, so it must hold
		// regardless of how the base and the output dir were spelled on the
		// command line.
		absBase, err := filepath.Abs(s.Base)
		if err != nil {
			return nil, fmt.Errorf("sweep %q: %w", s.Name, err)
		}
		baseRef, err := filepath.Rel(absOut, absBase)
		if err != nil {
			return nil, fmt.Errorf("sweep %q: cannot reference base %s from %s: %w", s.Name, s.Base, outDir, err)
		}

		for _, variant := range s.Expand() {
			// Validate the fully merged grid point.
			merged := manifest.CloneNode(base.Root())
			for _, o := range variant.Overrides {
				if err := manifest.SetPath(merged, o.Path, manifest.ValueNode(o.Value)); err != nil {
					return nil, fmt.Errorf("sweep %q, variant %s: %w", s.Name, variant.Name, err)
				}
			}
			res := resolve.NewResolved(variant.Name, merged)
			if err := reg.Validate(ctx, res); err != nil {
				return nil, fmt.Errorf("sweep %q, variant %s: %w", s.Name, variant.Name, err)
			}

			// Emit only the overrides, inheriting the rest from the base.
			doc := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			manifest.MapSet(doc, manifest.BaseKey, &yaml.Node{
				Kind:  yaml.ScalarNode,
				Tag:   "!!str",
				Style: yaml.DoubleQuotedStyle,
				Value: filepath.ToSlash(baseRef),
			})
			for _, o := range variant.Overrides {
				if err := manifest.SetPath(doc, o.Path, manifest.ValueNode(o.Value)); err != nil {
					return nil, fmt.Errorf("sweep %q, variant %s: %w", s.Name, variant.Name, err)
				}
			}
			data, err := manifest.EncodeNode(doc)
			if err != nil {
				return nil, fmt.Errorf("sweep %q, variant %s: %w", s.Name, variant.Name, err)
			}
			files = append(files, pending{
				path: filepath.Join(outDir, variant.Name+resolve.ManifestExt),
				data: data,
			})
		}
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		if err := renameio.WriteFile(f.path, f.data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write variant %s: %w", f.path, err)
		}
		written = append(written, f.path)
	}

	logger.Info("Sweep plan expanded.", "plan", p.Path, "variants", len(written), "out_dir", outDir)
	return written, nil
}
