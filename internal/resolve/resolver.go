package resolve

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	"github.com/reapbench/hparams/internal/ctxlog"
	"github.com/reapbench/hparams/internal/fsutil"
	"github.com/reapbench/hparams/internal/manifest"
)

// ManifestExt is the file extension of manifests in the config corpus.
const ManifestExt = ".yaml"

// Resolved is a fully merged parameter set: the result of loading a manifest
// and folding its entire _BASE_ chain, base first, into a single document.
type Resolved struct {
	// Path is the leaf manifest the resolution started from.
	Path string
	// Chain lists every file that contributed, base first, leaf last.
	Chain []string

	root *yaml.Node
}

// File resolves the manifest at path: it loads the complete _BASE_ chain and
// merges it base-then-override. A missing base file or an inheritance cycle
// is an error.
func File(ctx context.Context, path string) (*Resolved, error) {
	logger := ctxlog.FromContext(ctx)

	chain, err := loadChain(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Manifest chain loaded.", "path", path, "depth", len(chain))

	// chain is leaf-first; fold from the root of the inheritance tree down.
	merged := manifest.CloneNode(chain[len(chain)-1].Root())
	manifest.MapDelete(merged, manifest.BaseKey)
	files := []string{chain[len(chain)-1].Path}
	for i := len(chain) - 2; i >= 0; i-- {
		MergeInto(merged, chain[i].Root())
		files = append(files, chain[i].Path)
	}

	return &Resolved{Path: path, Chain: files, root: merged}, nil
}

// loadChain follows _BASE_ references from the given manifest upward,
// returning the manifests leaf-first.
func loadChain(path string) ([]*manifest.Manifest, error) {
	var chain []*manifest.Manifest
	seen := make(map[string]bool)

	cur := filepath.Clean(path)
	for {
		if seen[cur] {
			return nil, fmt.Errorf("inheritance cycle detected involving %s", cur)
		}
		seen[cur] = true

		m, err := manifest.Load(cur)
		if err != nil {
			if len(chain) > 0 && errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("base manifest %s referenced by %s does not exist", cur, chain[len(chain)-1].Path)
			}
			return nil, err
		}
		chain = append(chain, m)

		base, ok := m.Base()
		if !ok {
			return chain, nil
		}
		cur = fsutil.SiblingPath(m.Path, base)
	}
}

// Root returns the merged top-level mapping.
func (r *Resolved) Root() *yaml.Node {
	return r.root
}

// Lookup walks a dotted key path through the merged document.
func (r *Resolved) Lookup(path string) (*yaml.Node, bool) {
	return manifest.LookupNode(r.root, path)
}

// Flatten returns the typed value of every leaf in the merged document,
// keyed by dotted path.
func (r *Resolved) Flatten() (map[string]cty.Value, error) {
	return manifest.Flatten(r.root)
}

// Encode serializes the merged document to YAML.
func (r *Resolved) Encode() ([]byte, error) {
	data, err := manifest.EncodeNode(r.root)
	if err != nil {
		return nil, fmt.Errorf("failed to encode resolved config for %s: %w", r.Path, err)
	}
	return data, nil
}

// NewResolved wraps an already merged document. Callers that synthesize a
// parameter set in memory, like sweep expansion, use this to run it through
// validation without a file on disk.
func NewResolved(path string, root *yaml.Node) *Resolved {
	return &Resolved{Path: path, Chain: []string{path}, root: root}
}

// CheckTree verifies the corpus-wide inheritance graph under root: every
// _BASE_ reference must resolve to an existing file and no chain may cycle.
// It returns the manifest files found, sorted by path.
func CheckTree(ctx context.Context, root string) ([]string, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.FindFilesByExtension(root, ManifestExt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan config tree %s: %w", root, err)
	}
	logger.Debug("Config tree scanned.", "root", root, "manifests", len(files))

	graph := NewGraph()
	var errs []string
	loadErrs := make(map[string]error)
	for _, file := range files {
		graph.AddNode(filepath.Clean(file))
	}
	for _, file := range files {
		m, err := manifest.Load(file)
		if err != nil {
			loadErrs[filepath.Clean(file)] = err
			continue
		}
		base, ok := m.Base()
		if !ok {
			continue
		}
		basePath := fsutil.SiblingPath(file, base)
		if _, statErr := os.Stat(basePath); statErr != nil {
			errs = append(errs, fmt.Sprintf("base manifest %s referenced by %s does not exist", basePath, file))
			continue
		}
		graph.AddNode(basePath)
		if err := graph.AddEdge(basePath, filepath.Clean(file)); err != nil {
			errs = append(errs, err.Error())
		}
	}

	// Report a broken manifest together with the children that inherit from
	// it, since those fail to resolve too.
	for _, file := range files {
		loadErr, ok := loadErrs[filepath.Clean(file)]
		if !ok {
			continue
		}
		msg := loadErr.Error()
		if dependents, err := graph.Dependents(filepath.Clean(file)); err == nil && len(dependents) > 0 {
			sort.Strings(dependents)
			msg = fmt.Sprintf("%s (breaks %s)", msg, strings.Join(dependents, ", "))
		}
		errs = append(errs, msg)
	}

	if err := graph.DetectCycles(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return files, fmt.Errorf("config tree check failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return files, nil
}
