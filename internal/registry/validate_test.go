package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reapbench/hparams/internal/resolve"
)

// resolveFixture writes a single manifest and resolves it.
func resolveFixture(t *testing.T, src string) *resolve.Resolved {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	res, err := resolve.File(context.Background(), path)
	require.NoError(t, err)
	return res
}

const validFixture = `MODEL:
  META_ARCHITECTURE: "YOLOF"
  WEIGHTS: "./weights/yolof_r50_c5.pth"
  YOLOF:
    DECODER:
      NUM_CLASSES: 16
SOLVER:
  IMS_PER_BATCH: 16
  BASE_LR: 0.02
  STEPS: (15000, 20000)
  MAX_ITER: 22500
DATALOADER:
  NUM_WORKERS: 8
  SAMPLER_TRAIN: "TrainingSampler"
DATASETS:
  TRAIN: ("mtsd_color_train",)
  TEST: ("mtsd_color_val",)
OUTPUT_DIR: "./detectron_output/mtsd_color"
`

func TestValidate_Passes(t *testing.T) {
	t.Parallel()

	r := New()
	res := resolveFixture(t, validFixture)
	require.NoError(t, r.Validate(context.Background(), res))
}

func TestValidate_UnknownKey(t *testing.T) {
	t.Parallel()

	r := New()
	res := resolveFixture(t, "SOLVER:\n  LERNING_RATE: 0.1\n")
	err := r.Validate(context.Background(), res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key SOLVER.LERNING_RATE")
}

func TestValidate_TypeMismatch(t *testing.T) {
	t.Parallel()

	r := New()
	res := resolveFixture(t, "SOLVER:\n  MAX_ITER: \"lots\"\n")
	err := r.Validate(context.Background(), res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOLVER.MAX_ITER")
	assert.Contains(t, err.Error(), "expected number")
}

func TestValidate_UnregisteredDataset(t *testing.T) {
	t.Parallel()

	r := New()
	res := resolveFixture(t, "DATASETS:\n  TRAIN: (\"gtsrb_train\",)\n")
	err := r.Validate(context.Background(), res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unregistered dataset "gtsrb_train"`)
}

func TestValidate_UnknownSampler(t *testing.T) {
	t.Parallel()

	r := New()
	res := resolveFixture(t, "DATALOADER:\n  SAMPLER_TRAIN: \"ShuffleSampler\"\n")
	err := r.Validate(context.Background(), res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown sampler "ShuffleSampler"`)
}

func TestValidate_ClassCountMismatch(t *testing.T) {
	t.Parallel()

	r := New()
	res := resolveFixture(t, `MODEL:
  YOLOF:
    DECODER:
      NUM_CLASSES: 12
DATASETS:
  TRAIN: ("mtsd_color_train",)
`)
	err := r.Validate(context.Background(), res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NUM_CLASSES is 12")
	assert.Contains(t, err.Error(), `"mtsd-color" has 16 classes`)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	t.Parallel()

	r := New()
	res := resolveFixture(t, `SOLVER:
  LERNING_RATE: 0.1
  MAX_ITER: "lots"
DATASETS:
  TRAIN: ("gtsrb_train",)
`)
	err := r.Validate(context.Background(), res)
	require.Error(t, err)
	// One report listing every finding, not just the first.
	assert.Contains(t, err.Error(), "LERNING_RATE")
	assert.Contains(t, err.Error(), "MAX_ITER")
	assert.Contains(t, err.Error(), "gtsrb_train")
}

func TestCatalog(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 12, ShapeClassCount())
	assert.Equal(t, 16, ColorClassCount())
	assert.Equal(t, "mtsd_no_color_train", RegisteredName("mtsd-no_color", "train"))

	r := New()
	ds, ok := r.Dataset("reap_100_val")
	require.True(t, ok)
	assert.Equal(t, "reap-100", ds.Name)
	assert.Equal(t, 100, ds.NumClasses)

	assert.True(t, r.KnownSampler("RepeatFactorTrainingSampler"))
	assert.False(t, r.KnownSampler("ShuffleSampler"))

	names := r.DatasetNames()
	assert.Contains(t, names, "mtsd-orig")
	assert.Contains(t, names, "realism")
	assert.Len(t, names, 11)
}
