package resolve

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// writeTree lays out manifest fixtures in a temp dir and returns its path.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return dir
}

const baseFixture = `MODEL:
  META_ARCHITECTURE: "YOLOF"
  WEIGHTS: ""
  YOLOF:
    DECODER:
      NUM_CLASSES: 12
      NUM_ANCHORS: 5
SOLVER:
  IMS_PER_BATCH: 16
  BASE_LR: 0.01
  STEPS: (15000, 20000)
  MAX_ITER: 22500
INPUT:
  MIN_SIZE_TRAIN: (800,)
  CROP:
    ENABLED: False
DATALOADER:
  NUM_WORKERS: 8
`

const childFixture = `_BASE_: "Base-YOLOF.yaml"
MODEL:
  WEIGHTS: "./weights/yolof_r50_c5.pth"
  YOLOF:
    DECODER:
      NUM_CLASSES: 16
SOLVER:
  BASE_LR: 0.02
DATASETS:
  TRAIN: ("mtsd_color_train",)
  TEST: ("mtsd_color_val",)
OUTPUT_DIR: "./detectron_output/mtsd_color"
`

func TestFile_MergesBaseChain(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"Base-YOLOF.yaml": baseFixture,
		"mtsd_color.yaml": childFixture,
	})

	res, err := File(context.Background(), filepath.Join(dir, "mtsd_color.yaml"))
	require.NoError(t, err)
	require.Len(t, res.Chain, 2)
	assert.Equal(t, filepath.Join(dir, "Base-YOLOF.yaml"), res.Chain[0], "chain should be base first")

	flat, err := res.Flatten()
	require.NoError(t, err)

	// Child keys override the base at the same path.
	assert.True(t, flat["SOLVER.BASE_LR"].RawEquals(cty.NumberFloatVal(0.02)))
	assert.True(t, flat["MODEL.WEIGHTS"].RawEquals(cty.StringVal("./weights/yolof_r50_c5.pth")))
	assert.True(t, flat["MODEL.YOLOF.DECODER.NUM_CLASSES"].RawEquals(cty.NumberIntVal(16)))

	// Untouched base keys survive the merge.
	assert.True(t, flat["SOLVER.MAX_ITER"].RawEquals(cty.NumberIntVal(22500)))
	assert.True(t, flat["MODEL.YOLOF.DECODER.NUM_ANCHORS"].RawEquals(cty.NumberIntVal(5)))
	assert.True(t, flat["DATALOADER.NUM_WORKERS"].RawEquals(cty.NumberIntVal(8)))

	// Keys only the child declares are present.
	assert.True(t, flat["OUTPUT_DIR"].RawEquals(cty.StringVal("./detectron_output/mtsd_color")))

	// The directive itself is consumed.
	_, ok := res.Lookup("_BASE_")
	assert.False(t, ok, "_BASE_ must not leak into the resolved config")
}

func TestFile_ThreeLevelChain(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"Base-YOLOF.yaml": baseFixture,
		"reap.yaml": `_BASE_: "Base-YOLOF.yaml"
SOLVER:
  MAX_ITER: 10000
OUTPUT_DIR: "./detectron_output/reap"
`,
		"reap_100.yaml": `_BASE_: "reap.yaml"
SOLVER:
  BASE_LR: 0.005
DATASETS:
  TRAIN: ("reap_100_train",)
`,
	})

	res, err := File(context.Background(), filepath.Join(dir, "reap_100.yaml"))
	require.NoError(t, err)
	require.Len(t, res.Chain, 3)

	flat, err := res.Flatten()
	require.NoError(t, err)

	assert.True(t, flat["SOLVER.BASE_LR"].RawEquals(cty.NumberFloatVal(0.005)), "leaf override wins")
	assert.True(t, flat["SOLVER.MAX_ITER"].RawEquals(cty.NumberIntVal(10000)), "middle override wins over base")
	assert.True(t, flat["SOLVER.IMS_PER_BATCH"].RawEquals(cty.NumberIntVal(16)), "base default survives")
	assert.True(t, flat["OUTPUT_DIR"].RawEquals(cty.StringVal("./detectron_output/reap")))
}

func TestFile_ScalarReplacesSection(t *testing.T) {
	t.Parallel()

	// An override may replace a whole subtree with a scalar or tuple; the
	// merge must not descend into the stale base section.
	dir := writeTree(t, map[string]string{
		"base.yaml": "INPUT:\n  MIN_SIZE_TRAIN: (600, 800)\n",
		"child.yaml": `_BASE_: "base.yaml"
INPUT:
  MIN_SIZE_TRAIN: (1024,)
`,
	})

	res, err := File(context.Background(), filepath.Join(dir, "child.yaml"))
	require.NoError(t, err)

	flat, err := res.Flatten()
	require.NoError(t, err)
	assert.True(t, flat["INPUT.MIN_SIZE_TRAIN"].RawEquals(cty.TupleVal([]cty.Value{cty.NumberIntVal(1024)})))
}

func TestFile_DanglingBase(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"orphan.yaml": "_BASE_: \"missing.yaml\"\nSOLVER:\n  BASE_LR: 0.01\n",
	})

	_, err := File(context.Background(), filepath.Join(dir, "orphan.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
	assert.Contains(t, err.Error(), "missing.yaml")
}

func TestFile_InheritanceCycle(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"a.yaml": "_BASE_: \"b.yaml\"\nSOLVER:\n  BASE_LR: 0.01\n",
		"b.yaml": "_BASE_: \"a.yaml\"\nSOLVER:\n  BASE_LR: 0.02\n",
	})

	_, err := File(context.Background(), filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inheritance cycle")
}

func TestFile_NoBase(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{"base.yaml": baseFixture})

	res, err := File(context.Background(), filepath.Join(dir, "base.yaml"))
	require.NoError(t, err)
	assert.Len(t, res.Chain, 1)

	flat, err := res.Flatten()
	require.NoError(t, err)
	assert.True(t, flat["SOLVER.BASE_LR"].RawEquals(cty.NumberFloatVal(0.01)))
}

func TestResolved_EncodeRoundTrip(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"Base-YOLOF.yaml": baseFixture,
		"mtsd_color.yaml": childFixture,
	})

	res, err := File(context.Background(), filepath.Join(dir, "mtsd_color.yaml"))
	require.NoError(t, err)

	encoded, err := res.Encode()
	require.NoError(t, err)

	// Write the resolved output next to the fixtures and resolve it again:
	// it must flatten to the identical parameter set.
	out := filepath.Join(dir, "resolved.yaml")
	require.NoError(t, os.WriteFile(out, encoded, 0o600))

	again, err := File(context.Background(), out)
	require.NoError(t, err)

	wantFlat, err := res.Flatten()
	require.NoError(t, err)
	gotFlat, err := again.Flatten()
	require.NoError(t, err)

	if diff := cmp.Diff(wantFlat, gotFlat, ctyComparer); diff != "" {
		t.Errorf("parameter set changed through encode (-want +got):\n%s", diff)
	}
}

// ctyComparer lets cmp see into cty values with their native equality.
var ctyComparer = cmp.Comparer(func(a, b cty.Value) bool { return a.RawEquals(b) })

func TestCheckTree(t *testing.T) {
	t.Parallel()

	t.Run("clean tree passes", func(t *testing.T) {
		dir := writeTree(t, map[string]string{
			"Base-YOLOF.yaml": baseFixture,
			"mtsd_color.yaml": childFixture,
			"nested/reap.yaml": `_BASE_: "../Base-YOLOF.yaml"
OUTPUT_DIR: "./detectron_output/reap"
`,
		})

		files, err := CheckTree(context.Background(), dir)
		require.NoError(t, err)
		assert.Len(t, files, 3)
	})

	t.Run("dangling base is reported", func(t *testing.T) {
		dir := writeTree(t, map[string]string{
			"orphan.yaml": "_BASE_: \"missing.yaml\"\nSOLVER:\n  BASE_LR: 0.01\n",
		})

		_, err := CheckTree(context.Background(), dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("unparseable base lists the manifests it breaks", func(t *testing.T) {
		dir := writeTree(t, map[string]string{
			"broken.yaml": "MODEL: [unclosed\n",
			"child.yaml":  "_BASE_: \"broken.yaml\"\nOUTPUT_DIR: \"./out\"\n",
		})

		_, err := CheckTree(context.Background(), dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse")
		assert.Contains(t, err.Error(), "breaks "+filepath.Join(dir, "child.yaml"))
	})

	t.Run("cycle is reported", func(t *testing.T) {
		dir := writeTree(t, map[string]string{
			"a.yaml": "_BASE_: \"b.yaml\"\nX: 1\n",
			"b.yaml": "_BASE_: \"a.yaml\"\nX: 2\n",
		})

		_, err := CheckTree(context.Background(), dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "inheritance cycle")
	})
}
