package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/reapbench/hparams/internal/ctxlog"
	"github.com/reapbench/hparams/internal/resolve"
)

// Validate performs a strict parity check between a resolved manifest and
// the catalog: every key must be recognized by the schema with a compatible
// value, dataset names must be registered, the sampler must exist, and the
// decoder's class count must match the training dataset's label set.
func (r *Registry) Validate(ctx context.Context, res *resolve.Resolved) error {
	logger := ctxlog.FromContext(ctx)

	flat, err := res.Flatten()
	if err != nil {
		return fmt.Errorf("failed to read values of %s: %w", res.Path, err)
	}

	paths := make([]string, 0, len(flat))
	for path := range flat {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var errs []string
	for _, path := range paths {
		if err := r.Schema.CheckValue(path, flat[path]); err != nil {
			errs = append(errs, err.Error())
		}
	}

	var trainDataset *Dataset
	for _, key := range []string{"DATASETS.TRAIN", "DATASETS.TEST"} {
		v, ok := flat[key]
		if !ok || !v.Type().IsTupleType() {
			continue // absence and type errors are reported above
		}
		for _, elem := range v.AsValueSlice() {
			if elem.Type() != cty.String {
				continue
			}
			name := elem.AsString()
			ds, ok := r.Dataset(name)
			if !ok {
				errs = append(errs, fmt.Sprintf("%s names unregistered dataset %q", key, name))
				continue
			}
			if key == "DATASETS.TRAIN" && trainDataset == nil {
				trainDataset = ds
			}
		}
	}

	if v, ok := flat["DATALOADER.SAMPLER_TRAIN"]; ok && v.Type() == cty.String {
		if !r.KnownSampler(v.AsString()) {
			errs = append(errs, fmt.Sprintf("DATALOADER.SAMPLER_TRAIN names unknown sampler %q", v.AsString()))
		}
	}

	if trainDataset != nil {
		if v, ok := flat["MODEL.YOLOF.DECODER.NUM_CLASSES"]; ok && v.Type() == cty.Number {
			classes, _ := v.AsBigFloat().Int64()
			if int(classes) != trainDataset.NumClasses {
				errs = append(errs, fmt.Sprintf(
					"MODEL.YOLOF.DECODER.NUM_CLASSES is %d but training dataset %q has %d classes",
					classes, trainDataset.Name, trainDataset.NumClasses))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("manifest validation failed for %s:\n- %s", res.Path, strings.Join(errs, "\n- "))
	}

	logger.Debug("Manifest validation passed.", "path", res.Path, "keys", len(flat))
	return nil
}
