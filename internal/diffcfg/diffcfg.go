// Package diffcfg compares two resolved parameter sets key by key. The
// comparison runs on fully resolved configs, so two manifests with different
// _BASE_ chains still diff on what the trainer would actually see.
package diffcfg

import (
	"fmt"
	"io"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/reapbench/hparams/internal/manifest"
	"github.com/reapbench/hparams/internal/resolve"
)

// Kind classifies a single diff entry.
type Kind int

const (
	// Added means the key exists only in the second config.
	Added Kind = iota
	// Removed means the key exists only in the first config.
	Removed
	// Changed means the key exists in both with different values.
	Changed
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "changed"
	}
}

// Entry is one differing key path.
type Entry struct {
	Path string
	Kind Kind
	Old  cty.Value
	New  cty.Value
}

// Diff returns the entries where the two resolved configs disagree, sorted
// by key path.
func Diff(a, b *resolve.Resolved) ([]Entry, error) {
	flatA, err := a.Flatten()
	if err != nil {
		return nil, err
	}
	flatB, err := b.Flatten()
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for path, oldVal := range flatA {
		newVal, ok := flatB[path]
		switch {
		case !ok:
			entries = append(entries, Entry{Path: path, Kind: Removed, Old: oldVal})
		case !newVal.RawEquals(oldVal):
			entries = append(entries, Entry{Path: path, Kind: Changed, Old: oldVal, New: newVal})
		}
	}
	for path, newVal := range flatB {
		if _, ok := flatA[path]; !ok {
			entries = append(entries, Entry{Path: path, Kind: Added, New: newVal})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Format writes the entries in a compact single-line-per-key form.
func Format(w io.Writer, entries []Entry) {
	for _, e := range entries {
		switch e.Kind {
		case Added:
			fmt.Fprintf(w, "+ %s: %s\n", e.Path, manifest.FormatValue(e.New))
		case Removed:
			fmt.Fprintf(w, "- %s: %s\n", e.Path, manifest.FormatValue(e.Old))
		case Changed:
			fmt.Fprintf(w, "~ %s: %s -> %s\n", e.Path, manifest.FormatValue(e.Old), manifest.FormatValue(e.New))
		}
	}
}
