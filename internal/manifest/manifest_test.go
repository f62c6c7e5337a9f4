package manifest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

const sampleManifest = `_BASE_: "Base-YOLOF.yaml"
MODEL:
  META_ARCHITECTURE: "YOLOF"
  WEIGHTS: "./weights/yolof_r50_c5.pth"
  YOLOF:
    DECODER:
      NUM_CLASSES: 12
SOLVER:
  BASE_LR: 0.01
  STEPS: (15000, 20000)
  MAX_ITER: 22500
INPUT:
  MIN_SIZE_TRAIN: (800,)
  CROP:
    ENABLED: False
DATASETS:
  TRAIN: ("mtsd_orig_train",)
  TEST: ("mtsd_orig_val",)
OUTPUT_DIR: "./detectron_output/mtsd"
`

func TestParse(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(sampleManifest), "mtsd.yaml")
	require.NoError(t, err)

	base, ok := m.Base()
	require.True(t, ok)
	assert.Equal(t, "Base-YOLOF.yaml", base)

	// Top-level section order must match the document.
	assert.Equal(t,
		[]string{"_BASE_", "MODEL", "SOLVER", "INPUT", "DATASETS", "OUTPUT_DIR"},
		MapKeys(m.Root()))
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	t.Run("empty document", func(t *testing.T) {
		_, err := Parse([]byte(""), "empty.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})

	t.Run("top level not a mapping", func(t *testing.T) {
		_, err := Parse([]byte("- a\n- b\n"), "list.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be a mapping")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Parse([]byte("MODEL: [unclosed\n"), "bad.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse")
	})
}

func TestLookup(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(sampleManifest), "mtsd.yaml")
	require.NoError(t, err)

	n, ok := m.Lookup("SOLVER.BASE_LR")
	require.True(t, ok)
	assert.Equal(t, "0.01", n.Value)

	n, ok = m.Lookup("MODEL.YOLOF.DECODER.NUM_CLASSES")
	require.True(t, ok)
	assert.Equal(t, "12", n.Value)

	_, ok = m.Lookup("SOLVER.NO_SUCH_KEY")
	assert.False(t, ok)

	// Descending through a scalar fails rather than panicking.
	_, ok = m.Lookup("OUTPUT_DIR.NESTED")
	assert.False(t, ok)
}

func TestSet(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(sampleManifest), "mtsd.yaml")
	require.NoError(t, err)

	// Override an existing leaf.
	require.NoError(t, m.Set("SOLVER.BASE_LR", ValueNode(cty.NumberFloatVal(0.02))))
	n, ok := m.Lookup("SOLVER.BASE_LR")
	require.True(t, ok)
	assert.Equal(t, "0.02", n.Value)

	// Create intermediate sections on the way down.
	require.NoError(t, m.Set("DATALOADER.NUM_WORKERS", ValueNode(cty.NumberIntVal(8))))
	n, ok = m.Lookup("DATALOADER.NUM_WORKERS")
	require.True(t, ok)
	assert.Equal(t, "8", n.Value)

	// Setting below a scalar is an error.
	err = m.Set("OUTPUT_DIR.NESTED", ValueNode(cty.StringVal("x")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a section")
}

func TestEncode_RoundTrip(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(sampleManifest), "mtsd.yaml")
	require.NoError(t, err)

	encoded, err := m.Encode()
	require.NoError(t, err)

	back, err := Parse(encoded, "mtsd-again.yaml")
	require.NoError(t, err)

	wantFlat, err := Flatten(m.Root())
	require.NoError(t, err)
	gotFlat, err := Flatten(back.Root())
	require.NoError(t, err)

	diff := cmp.Diff(wantFlat, gotFlat,
		cmp.Comparer(func(a, b cty.Value) bool { return a.RawEquals(b) }))
	assert.Empty(t, diff, "key-value pairs changed in round trip")

	// Section order survives as well.
	assert.Equal(t, MapKeys(m.Root()), MapKeys(back.Root()))
}

func TestFlatten(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(sampleManifest), "mtsd.yaml")
	require.NoError(t, err)

	flat, err := Flatten(m.Root())
	require.NoError(t, err)

	steps := flat["SOLVER.STEPS"]
	require.True(t, steps.Type().IsTupleType(), "tuple literal should flatten to a tuple")
	assert.True(t, steps.RawEquals(cty.TupleVal([]cty.Value{
		cty.NumberIntVal(15000), cty.NumberIntVal(20000),
	})))

	assert.True(t, flat["INPUT.CROP.ENABLED"].RawEquals(cty.False))
	assert.True(t, flat["OUTPUT_DIR"].RawEquals(cty.StringVal("./detectron_output/mtsd")))
	assert.True(t, flat["DATASETS.TRAIN"].RawEquals(cty.TupleVal([]cty.Value{cty.StringVal("mtsd_orig_train")})))
}

func TestNodeValue_Kinds(t *testing.T) {
	t.Parallel()

	src := `flag: True
count: 8
rate: 0.00066667
name: "value"
seq: [103.53, 116.28, 123.675]
empty: {}
nothing: null
`
	m, err := Parse([]byte(src), "kinds.yaml")
	require.NoError(t, err)

	flat, err := Flatten(m.Root())
	require.NoError(t, err)

	assert.True(t, flat["flag"].RawEquals(cty.True))
	assert.True(t, flat["count"].RawEquals(cty.NumberIntVal(8)))
	assert.True(t, flat["rate"].RawEquals(cty.NumberFloatVal(0.00066667)))
	assert.True(t, flat["name"].RawEquals(cty.StringVal("value")))
	assert.True(t, flat["seq"].RawEquals(cty.TupleVal([]cty.Value{
		cty.NumberFloatVal(103.53), cty.NumberFloatVal(116.28), cty.NumberFloatVal(123.675),
	})))
	assert.True(t, flat["empty"].RawEquals(cty.EmptyObjectVal))
	assert.True(t, flat["nothing"].IsNull())
}

func TestValueNode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		value     cty.Value
		wantTag   string
		wantValue string
	}{
		{"bool", cty.True, "!!bool", "True"},
		{"int", cty.NumberIntVal(22500), "!!int", "22500"},
		{"large int stays plain", cty.NumberIntVal(1000000), "!!int", "1000000"},
		{"float", cty.NumberFloatVal(0.01), "!!float", "0.01"},
		{"string", cty.StringVal("YOLOF"), "!!str", "YOLOF"},
		{
			"tuple renders as literal",
			cty.TupleVal([]cty.Value{cty.NumberIntVal(15000), cty.NumberIntVal(20000)}),
			"!!str", "(15000, 20000)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := ValueNode(tt.value)
			require.Equal(t, yaml.ScalarNode, n.Kind)
			assert.Equal(t, tt.wantTag, n.Tag)
			assert.Equal(t, tt.wantValue, n.Value)
		})
	}
}

func TestCloneNode_NoAliasing(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(sampleManifest), "mtsd.yaml")
	require.NoError(t, err)

	clone := CloneNode(m.Root())
	n, ok := MapGet(clone, "OUTPUT_DIR")
	require.True(t, ok)
	n.Value = "mutated"

	orig, ok := m.Lookup("OUTPUT_DIR")
	require.True(t, ok)
	assert.Equal(t, "./detectron_output/mtsd", orig.Value, "mutating a clone must not touch the source")
}
