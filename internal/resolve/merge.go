package resolve

import (
	"gopkg.in/yaml.v3"

	"github.com/reapbench/hparams/internal/manifest"
)

// MergeInto applies the override mapping onto dst in place. Sections present
// in both merge key by key; everything else in the override replaces the
// base value. Override subtrees are cloned so the merged document never
// aliases nodes of the override's source manifest. The _BASE_ directive is
// dropped on both sides.
func MergeInto(dst, override *yaml.Node) {
	manifest.MapDelete(dst, manifest.BaseKey)
	for i := 0; i+1 < len(override.Content); i += 2 {
		key := override.Content[i].Value
		if key == manifest.BaseKey {
			continue
		}
		value := override.Content[i+1]

		existing, ok := manifest.MapGet(dst, key)
		if ok && existing.Kind == yaml.MappingNode && value.Kind == yaml.MappingNode {
			MergeInto(existing, value)
			continue
		}
		manifest.MapSet(dst, key, manifest.CloneNode(value))
	}
}
