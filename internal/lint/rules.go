package lint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// checkSizeOrdering enforces the min/max pairing of the input size bounds.
func checkSizeOrdering(flat map[string]cty.Value) []Finding {
	var findings []Finding

	minTest, okMin := number(flat, "INPUT.MIN_SIZE_TEST")
	maxTest, okMax := number(flat, "INPUT.MAX_SIZE_TEST")
	if okMin && okMax && minTest > maxTest {
		findings = append(findings, Finding{
			Severity: SeverityError,
			Path:     "INPUT.MIN_SIZE_TEST",
			Message:  fmt.Sprintf("must be <= INPUT.MAX_SIZE_TEST (%g > %g)", minTest, maxTest),
		})
	}

	maxTrain, okMax := number(flat, "INPUT.MAX_SIZE_TRAIN")
	if minsTrain, ok := numberTuple(flat, "INPUT.MIN_SIZE_TRAIN"); ok && okMax {
		for _, min := range minsTrain {
			if min > maxTrain {
				findings = append(findings, Finding{
					Severity: SeverityError,
					Path:     "INPUT.MIN_SIZE_TRAIN",
					Message:  fmt.Sprintf("entry %g exceeds INPUT.MAX_SIZE_TRAIN (%g)", min, maxTrain),
				})
			}
		}
	}

	return findings
}

// checkSolverSteps requires the decay schedule to be ascending and to fall
// inside the training horizon.
func checkSolverSteps(flat map[string]cty.Value) []Finding {
	steps, ok := numberTuple(flat, "SOLVER.STEPS")
	if !ok {
		return nil
	}
	var findings []Finding

	maxIter, okMax := number(flat, "SOLVER.MAX_ITER")
	for _, step := range steps {
		if okMax && step >= maxIter {
			findings = append(findings, Finding{
				Severity: SeverityError,
				Path:     "SOLVER.STEPS",
				Message:  fmt.Sprintf("decay step %g is not below SOLVER.MAX_ITER (%g)", step, maxIter),
			})
		}
	}
	if !sort.Float64sAreSorted(steps) {
		findings = append(findings, Finding{
			Severity: SeverityError,
			Path:     "SOLVER.STEPS",
			Message:  "decay steps must be ascending",
		})
	}
	return findings
}

func checkWarmup(flat map[string]cty.Value) []Finding {
	warmup, ok := number(flat, "SOLVER.WARMUP_ITERS")
	maxIter, okMax := number(flat, "SOLVER.MAX_ITER")
	if !ok || !okMax || warmup <= maxIter {
		return nil
	}
	return []Finding{{
		Severity: SeverityError,
		Path:     "SOLVER.WARMUP_ITERS",
		Message:  fmt.Sprintf("warmup (%g) exceeds SOLVER.MAX_ITER (%g)", warmup, maxIter),
	}}
}

// checkCheckpointPeriod flags a period so large no checkpoint would ever be
// written.
func checkCheckpointPeriod(flat map[string]cty.Value) []Finding {
	period, ok := number(flat, "SOLVER.CHECKPOINT_PERIOD")
	maxIter, okMax := number(flat, "SOLVER.MAX_ITER")
	if !ok || !okMax || period <= maxIter {
		return nil
	}
	return []Finding{{
		Severity: SeverityWarning,
		Path:     "SOLVER.CHECKPOINT_PERIOD",
		Message:  fmt.Sprintf("period (%g) exceeds SOLVER.MAX_ITER (%g), no checkpoint will be written before the run ends", period, maxIter),
	}}
}

// checkTransformConflict keeps the image-size transforms mutually
// consistent: crop and resize must not both run, and disabling both must
// leave no other size transform enabled.
func checkTransformConflict(flat map[string]cty.Value) []Finding {
	crop, okCrop := boolean(flat, "INPUT.CROP.ENABLED")
	resize, okResize := boolean(flat, "INPUT.RESIZE.ENABLED")

	if okCrop && okResize && crop && resize {
		return []Finding{{
			Severity: SeverityError,
			Path:     "INPUT.RESIZE.ENABLED",
			Message:  "INPUT.CROP and INPUT.RESIZE are both enabled and would fight over the input size",
		}}
	}

	if !(okCrop && okResize) || crop || resize {
		return nil
	}

	// Both disabled: nothing else under INPUT may still reshape the image.
	var findings []Finding
	for path, v := range flat {
		if !strings.HasPrefix(path, "INPUT.") || !strings.HasSuffix(path, ".ENABLED") {
			continue
		}
		if path == "INPUT.CROP.ENABLED" || path == "INPUT.RESIZE.ENABLED" {
			continue
		}
		if v.Type() == cty.Bool && v.True() {
			findings = append(findings, Finding{
				Severity: SeverityError,
				Path:     path,
				Message:  "size transform left enabled while INPUT.CROP and INPUT.RESIZE are disabled",
			})
		}
	}
	return findings
}

// checkRepeatFactorSampler requires a repeat threshold when class-balanced
// resampling is selected.
func checkRepeatFactorSampler(flat map[string]cty.Value) []Finding {
	v, ok := flat["DATALOADER.SAMPLER_TRAIN"]
	if !ok || v.IsNull() || v.Type() != cty.String || v.AsString() != "RepeatFactorTrainingSampler" {
		return nil
	}
	threshold, ok := number(flat, "DATALOADER.REPEAT_THRESHOLD")
	if ok && threshold > 0 {
		return nil
	}
	return []Finding{{
		Severity: SeverityError,
		Path:     "DATALOADER.REPEAT_THRESHOLD",
		Message:  "RepeatFactorTrainingSampler requires a positive DATALOADER.REPEAT_THRESHOLD",
	}}
}

func checkClipGradients(flat map[string]cty.Value) []Finding {
	enabled, ok := boolean(flat, "SOLVER.CLIP_GRADIENTS.ENABLED")
	if !ok || !enabled {
		return nil
	}
	value, ok := number(flat, "SOLVER.CLIP_GRADIENTS.CLIP_VALUE")
	if ok && value > 0 {
		return nil
	}
	return []Finding{{
		Severity: SeverityError,
		Path:     "SOLVER.CLIP_GRADIENTS.CLIP_VALUE",
		Message:  "gradient clipping is enabled but the clip value is missing or not positive",
	}}
}

// checkPositives covers the handful of scalars that only make sense
// strictly positive.
func checkPositives(flat map[string]cty.Value) []Finding {
	var findings []Finding
	for _, path := range []string{
		"SOLVER.BASE_LR",
		"SOLVER.IMS_PER_BATCH",
		"SOLVER.MAX_ITER",
	} {
		if v, ok := number(flat, path); ok && v <= 0 {
			findings = append(findings, Finding{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("must be positive, got %g", v),
			})
		}
	}
	if v, ok := number(flat, "DATALOADER.NUM_WORKERS"); ok && v < 0 {
		findings = append(findings, Finding{
			Severity: SeverityError,
			Path:     "DATALOADER.NUM_WORKERS",
			Message:  fmt.Sprintf("must not be negative, got %g", v),
		})
	}
	return findings
}
