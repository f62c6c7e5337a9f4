package registry

import "strings"

// Dataset is a registered traffic-sign dataset a manifest may train or
// evaluate on.
type Dataset struct {
	// Name is the catalog name, e.g. "mtsd-color".
	Name string
	// NumClasses is the label-set size a model trained on this dataset
	// must predict.
	NumClasses int
	// Splits are the registered split suffixes.
	Splits []string
}

// trafficSignShapes maps each sign shape class to its color variants. A
// shape with no color variants contributes a single class; a shape with
// variants contributes one class per color.
var trafficSignShapes = []struct {
	Shape  string
	Colors []string
}{
	{"circle", []string{"white", "blue", "red"}},
	{"triangle", []string{"white", "yellow"}},
	{"up-triangle", nil},
	{"diamond-s", nil},
	{"diamond-l", nil},
	{"square", nil},
	{"rect-s", []string{"white", "other"}},
	{"rect-m", nil},
	{"rect-l", nil},
	{"pentagon", nil},
	{"octagon", nil},
	{"other", nil},
}

// ShapeClassCount is the label-set size of the shape-only (no_color)
// datasets.
func ShapeClassCount() int {
	return len(trafficSignShapes)
}

// ColorClassCount is the label-set size of the color-annotated datasets.
func ColorClassCount() int {
	count := 0
	for _, s := range trafficSignShapes {
		if len(s.Colors) == 0 {
			count++
			continue
		}
		count += len(s.Colors)
	}
	return count
}

// mtsdOrigClasses is the label-set size of MTSD with its original,
// unremapped labels.
const mtsdOrigClasses = 401

var defaultSplits = []string{"train", "val", "combined"}

// newCatalog builds the dataset catalog: MTSD and Mapillary Vistas in their
// original, shape-only, and color-annotated variants, the REAP and synthetic
// benchmark sets, their 100-class subsets, and the realism test set.
func newCatalog() map[string]*Dataset {
	specs := []struct {
		name    string
		classes int
	}{
		{"mtsd-orig", mtsdOrigClasses},
		{"mtsd-no_color", ShapeClassCount()},
		{"mtsd-color", ColorClassCount()},
		{"mapillary-no_color", ShapeClassCount()},
		{"mapillary-color", ColorClassCount()},
		{"reap", ShapeClassCount()},
		{"synthetic", ShapeClassCount()},
		{"mtsd-100", 100},
		{"reap-100", 100},
		{"synthetic-100", 100},
		{"realism", ShapeClassCount()},
	}

	catalog := make(map[string]*Dataset, len(specs))
	for _, spec := range specs {
		catalog[spec.name] = &Dataset{
			Name:       spec.name,
			NumClasses: spec.classes,
			Splits:     defaultSplits,
		}
	}
	return catalog
}

// RegisteredName is the identifier a manifest uses for a dataset split:
// the catalog name with dashes flattened, joined to the split.
func RegisteredName(dataset, split string) string {
	return strings.ReplaceAll(dataset, "-", "_") + "_" + split
}
