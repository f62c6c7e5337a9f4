// Package schema declares the key schema a resolved manifest is checked
// against: every recognized dotted key path with its expected type. The
// trainer's own schema is authoritative at load time; this table exists so
// that a typo or a type mismatch is caught before a run is ever launched.
package schema

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Schema is the set of recognized manifest keys and their types.
type Schema struct {
	fields map[string]cty.Type
	open   []string
}

// FieldType returns the declared type of a key path.
func (s *Schema) FieldType(path string) (cty.Type, bool) {
	t, ok := s.fields[path]
	return t, ok
}

// OpenSubtree reports whether the path sits under a section that accepts
// arbitrary child keys (architecture-specific blocks like MODEL.YOLOF, whose
// full key set belongs to the external framework).
func (s *Schema) OpenSubtree(path string) bool {
	for _, prefix := range s.open {
		if strings.HasPrefix(path, prefix+".") {
			return true
		}
	}
	return false
}

// Known reports whether a key path is recognized at all.
func (s *Schema) Known(path string) bool {
	if _, ok := s.fields[path]; ok {
		return true
	}
	return s.OpenSubtree(path)
}

// CheckValue verifies a leaf value against the declared type of its path.
// Unknown paths under open subtrees pass unchecked.
func (s *Schema) CheckValue(path string, v cty.Value) error {
	want, ok := s.fields[path]
	if !ok {
		if s.OpenSubtree(path) {
			return nil
		}
		return fmt.Errorf("unknown key %s", path)
	}
	if v.IsNull() {
		return nil
	}
	if _, err := convert.Convert(v, want); err != nil {
		return fmt.Errorf("key %s: expected %s, got %s", path, want.FriendlyName(), v.Type().FriendlyName())
	}
	return nil
}

// Default returns the schema for the detectron-style manifests this corpus
// uses: the common MODEL/SOLVER/INPUT/DATALOADER/DATASETS/TEST surface plus
// the YOLOF-specific blocks left open.
func Default() *Schema {
	numbers := cty.List(cty.Number)
	strs := cty.List(cty.String)

	return &Schema{
		open: []string{
			"MODEL.YOLOF",
			"MODEL.ANCHOR_GENERATOR",
		},
		fields: map[string]cty.Type{
			"VERSION":         cty.Number,
			"SEED":            cty.Number,
			"OUTPUT_DIR":      cty.String,
			"CUDNN_BENCHMARK": cty.Bool,

			"MODEL.META_ARCHITECTURE":    cty.String,
			"MODEL.WEIGHTS":              cty.String,
			"MODEL.DEVICE":               cty.String,
			"MODEL.MASK_ON":              cty.Bool,
			"MODEL.PIXEL_MEAN":           numbers,
			"MODEL.PIXEL_STD":            numbers,
			"MODEL.BACKBONE.NAME":        cty.String,
			"MODEL.BACKBONE.FREEZE_AT":   cty.Number,
			"MODEL.RESNETS.DEPTH":        cty.Number,
			"MODEL.RESNETS.NORM":         cty.String,
			"MODEL.RESNETS.OUT_FEATURES": strs,

			"SOLVER.IMS_PER_BATCH":             cty.Number,
			"SOLVER.BASE_LR":                   cty.Number,
			"SOLVER.STEPS":                     numbers,
			"SOLVER.MAX_ITER":                  cty.Number,
			"SOLVER.GAMMA":                     cty.Number,
			"SOLVER.MOMENTUM":                  cty.Number,
			"SOLVER.WEIGHT_DECAY":              cty.Number,
			"SOLVER.WEIGHT_DECAY_NORM":         cty.Number,
			"SOLVER.WARMUP_FACTOR":             cty.Number,
			"SOLVER.WARMUP_ITERS":              cty.Number,
			"SOLVER.WARMUP_METHOD":             cty.String,
			"SOLVER.LR_SCHEDULER_NAME":         cty.String,
			"SOLVER.CHECKPOINT_PERIOD":         cty.Number,
			"SOLVER.AMP.ENABLED":               cty.Bool,
			"SOLVER.CLIP_GRADIENTS.ENABLED":    cty.Bool,
			"SOLVER.CLIP_GRADIENTS.CLIP_TYPE":  cty.String,
			"SOLVER.CLIP_GRADIENTS.CLIP_VALUE": cty.Number,
			"SOLVER.CLIP_GRADIENTS.NORM_TYPE":  cty.Number,

			"INPUT.MIN_SIZE_TRAIN":          numbers,
			"INPUT.MIN_SIZE_TRAIN_SAMPLING": cty.String,
			"INPUT.MAX_SIZE_TRAIN":          cty.Number,
			"INPUT.MIN_SIZE_TEST":           cty.Number,
			"INPUT.MAX_SIZE_TEST":           cty.Number,
			"INPUT.FORMAT":                  cty.String,
			"INPUT.RANDOM_FLIP":             cty.String,
			"INPUT.CROP.ENABLED":            cty.Bool,
			"INPUT.CROP.TYPE":               cty.String,
			"INPUT.CROP.SIZE":               numbers,
			"INPUT.RESIZE.ENABLED":          cty.Bool,
			"INPUT.RESIZE.SHAPE":            numbers,

			"DATALOADER.NUM_WORKERS":              cty.Number,
			"DATALOADER.SAMPLER_TRAIN":            cty.String,
			"DATALOADER.FILTER_EMPTY_ANNOTATIONS": cty.Bool,
			"DATALOADER.REPEAT_THRESHOLD":         cty.Number,
			"DATALOADER.ASPECT_RATIO_GROUPING":    cty.Bool,

			"DATASETS.TRAIN": strs,
			"DATASETS.TEST":  strs,

			"TEST.EVAL_PERIOD":          cty.Number,
			"TEST.DETECTIONS_PER_IMAGE": cty.Number,
			"TEST.AUG.ENABLED":          cty.Bool,
		},
	}
}
