package registry

import (
	"sort"

	"github.com/reapbench/hparams/internal/schema"
)

// Registry holds the key schema, dataset catalog, and sampler set for a
// single application instance.
type Registry struct {
	Schema *schema.Schema

	datasets map[string]*Dataset
	splits   map[string]*Dataset
	samplers map[string]struct{}
}

// New creates and initializes a Registry with the default schema and the
// full experiment catalog.
func New() *Registry {
	r := &Registry{
		Schema:   schema.Default(),
		datasets: newCatalog(),
		splits:   make(map[string]*Dataset),
		samplers: make(map[string]struct{}),
	}

	for _, ds := range r.datasets {
		for _, split := range ds.Splits {
			r.splits[RegisteredName(ds.Name, split)] = ds
		}
	}

	for _, sampler := range []string{
		"TrainingSampler",
		"RepeatFactorTrainingSampler",
		"RandomSubsetTrainingSampler",
	} {
		r.samplers[sampler] = struct{}{}
	}

	return r
}

// Dataset looks up the dataset behind a registered split name such as
// "mtsd_color_train".
func (r *Registry) Dataset(registeredName string) (*Dataset, bool) {
	ds, ok := r.splits[registeredName]
	return ds, ok
}

// KnownSampler reports whether the named dataset-iteration strategy is
// registered.
func (r *Registry) KnownSampler(name string) bool {
	_, ok := r.samplers[name]
	return ok
}

// DatasetNames returns the catalog names, sorted.
func (r *Registry) DatasetNames() []string {
	names := make([]string, 0, len(r.datasets))
	for name := range r.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
