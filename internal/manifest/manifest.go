package manifest

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// BaseKey is the inheritance directive: its value names a parent manifest
// whose fields are inherited and selectively overridden.
const BaseKey = "_BASE_"

// Manifest is a single parsed manifest file. The underlying document is kept
// as a yaml.Node tree so that key order, comments, and scalar styles survive
// a load/encode round trip.
type Manifest struct {
	// Path is the file the manifest was loaded from, or a synthetic name
	// for manifests parsed from memory. Used in error messages and as the
	// anchor for relative _BASE_ references.
	Path string

	doc *yaml.Node
}

// Load reads and parses the manifest file at path.
func Load(path string) (*Manifest, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return Parse(src, path)
}

// Parse parses manifest source. The path is recorded for error reporting and
// base-reference resolution; it does not need to exist on disk.
func Parse(src []byte, path string) (*Manifest, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("manifest %s is empty", path)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("manifest %s: top level must be a mapping of sections", path)
	}
	return &Manifest{Path: path, doc: &doc}, nil
}

// Root returns the top-level mapping node of the document.
func (m *Manifest) Root() *yaml.Node {
	return m.doc.Content[0]
}

// Base returns the manifest's _BASE_ reference, if it declares one.
func (m *Manifest) Base() (string, bool) {
	n, ok := MapGet(m.Root(), BaseKey)
	if !ok || n.Kind != yaml.ScalarNode {
		return "", false
	}
	return n.Value, true
}

// Encode serializes the manifest back to YAML, preserving the document
// structure it was parsed with.
func (m *Manifest) Encode() ([]byte, error) {
	data, err := EncodeNode(m.Root())
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest %s: %w", m.Path, err)
	}
	return data, nil
}

// EncodeNode serializes a mapping node to YAML with the corpus's two-space
// indentation.
func EncodeNode(root *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Lookup walks a dotted key path (e.g. "SOLVER.BASE_LR") through the nested
// mappings and returns the value node it lands on.
func (m *Manifest) Lookup(path string) (*yaml.Node, bool) {
	return LookupNode(m.Root(), path)
}

// Set writes a value node at the dotted key path, creating intermediate
// mapping nodes as needed. Used to apply sweep overrides onto a manifest.
func (m *Manifest) Set(path string, value *yaml.Node) error {
	if err := SetPath(m.Root(), path, value); err != nil {
		return fmt.Errorf("manifest %s: %w", m.Path, err)
	}
	return nil
}

// SetPath writes a value node at the dotted key path below root, creating
// intermediate mapping nodes as needed.
func SetPath(root *yaml.Node, path string, value *yaml.Node) error {
	parts := strings.Split(path, ".")
	cur := root
	for _, part := range parts[:len(parts)-1] {
		next, ok := MapGet(cur, part)
		if !ok {
			next = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			MapSet(cur, part, next)
		}
		if next.Kind != yaml.MappingNode {
			return fmt.Errorf("%s is not a section, cannot set %s", part, path)
		}
		cur = next
	}
	MapSet(cur, parts[len(parts)-1], value)
	return nil
}

// LookupNode walks a dotted key path from the given mapping node.
func LookupNode(root *yaml.Node, path string) (*yaml.Node, bool) {
	cur := root
	for _, part := range strings.Split(path, ".") {
		if cur.Kind != yaml.MappingNode {
			return nil, false
		}
		next, ok := MapGet(cur, part)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}
