// Package manifest defines the data model for hyperparameter manifests: the
// hierarchical key-value documents (MODEL, SOLVER, INPUT, DATALOADER,
// DATASETS, OUTPUT_DIR sections) that parameterize a training run.
//
// Why keep the raw yaml.Node tree?
//
// A manifest is authored by hand and diffed by hand. Decoding it into Go maps
// would throw away key order, comments, and scalar styles, which breaks the
// round-trip guarantee the rest of the toolkit depends on: a parsed and
// re-serialized manifest must preserve every key-value pair and its nesting
// exactly. The node tree captures the author's document as written, and a
// later stage converts individual scalars into typed cty values only where a
// consumer (schema validation, linting, diffing) needs them.
//
// The one piece of syntax the YAML layer does not understand is the
// Python-style tuple literal, e.g. `STEPS: (15000, 20000)` or the
// single-element `MIN_SIZE_TRAIN: (800,)`. Those arrive as plain strings and
// are recognized by this package, surfacing as cty tuples.
package manifest
