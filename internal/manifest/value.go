package manifest

import (
	"fmt"
	"strconv"

	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// NodeValue converts a manifest node into its typed cty value. Scalars map to
// bool, number, or string; string scalars holding a tuple literal become cty
// tuples, as do YAML sequences; mappings become cty objects.
func NodeValue(n *yaml.Node) (cty.Value, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return NodeValue(n.Alias)
	case yaml.ScalarNode:
		return scalarValue(n)
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(n.Content))
		for i, child := range n.Content {
			v, err := NodeValue(child)
			if err != nil {
				return cty.NilVal, err
			}
			elems[i] = v
		}
		return cty.TupleVal(elems), nil
	case yaml.MappingNode:
		if len(n.Content) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := NodeValue(n.Content[i+1])
			if err != nil {
				return cty.NilVal, err
			}
			attrs[n.Content[i].Value] = v
		}
		return cty.ObjectVal(attrs), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported node kind %d at line %d", n.Kind, n.Line)
	}
}

func scalarValue(n *yaml.Node) (cty.Value, error) {
	switch n.Tag {
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			return cty.NilVal, fmt.Errorf("invalid bool %q at line %d: %w", n.Value, n.Line, err)
		}
		return cty.BoolVal(b), nil
	case "!!int", "!!float":
		v, err := cty.ParseNumberVal(n.Value)
		if err != nil {
			return cty.NilVal, fmt.Errorf("invalid number %q at line %d: %w", n.Value, n.Line, err)
		}
		return v, nil
	case "!!null":
		return cty.NullVal(cty.DynamicPseudoType), nil
	default:
		if tuple, ok := ParseTupleLiteral(n.Value); ok {
			return tuple, nil
		}
		return cty.StringVal(n.Value), nil
	}
}

// ValueNode converts a cty value back into a manifest node, rendering tuples
// in the corpus's parenthesized literal form. It is the write side of sweep
// overrides.
func ValueNode(v cty.Value) *yaml.Node {
	switch {
	case v.IsNull():
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case v.Type() == cty.Bool:
		val := "False"
		if v.True() {
			val = "True"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: val}
	case v.Type() == cty.Number:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: numberTag(v), Value: formatNumber(v)}
	case v.Type() == cty.String:
		return &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Style: yaml.DoubleQuotedStyle,
			Value: v.AsString(),
		}
	case v.Type().IsTupleType() || v.Type().IsListType():
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: RenderTupleLiteral(v)}
	case v.Type().IsObjectType() || v.Type().IsMapType():
		mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for key, elem := range v.AsValueMap() {
			MapSet(mapping, key, ValueNode(elem))
		}
		return mapping
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.GoString()}
	}
}

// FormatValue renders a value the way it would appear in a manifest, for use
// in findings and diff output.
func FormatValue(v cty.Value) string {
	switch {
	case v == cty.NilVal:
		return "<none>"
	case v.IsNull():
		return "None"
	case v.Type() == cty.Bool:
		if v.True() {
			return "True"
		}
		return "False"
	case v.Type() == cty.Number:
		return formatNumber(v)
	case v.Type() == cty.String:
		return strconv.Quote(v.AsString())
	case v.Type().IsTupleType():
		return RenderTupleLiteral(v)
	default:
		return v.GoString()
	}
}

// formatNumber renders a number without drifting into scientific notation
// for integers: 1000000 must stay "1000000", not "1e+06", or the int tag
// would not survive a YAML round trip.
func formatNumber(v cty.Value) string {
	bf := v.AsBigFloat()
	if bf.IsInt() {
		return bf.Text('f', 0)
	}
	return bf.Text('g', -1)
}

func numberTag(v cty.Value) string {
	if v.AsBigFloat().IsInt() {
		return "!!int"
	}
	return "!!float"
}

// Flatten walks the nested mappings under root and returns the typed value of
// every leaf, keyed by dotted path. Sequences and tuple literals are leaves;
// an empty section appears as an empty object so it is not silently lost.
func Flatten(root *yaml.Node) (map[string]cty.Value, error) {
	out := make(map[string]cty.Value)
	if err := flattenInto(root, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func flattenInto(n *yaml.Node, prefix string, out map[string]cty.Value) error {
	if n.Kind == yaml.AliasNode {
		return flattenInto(n.Alias, prefix, out)
	}
	if n.Kind != yaml.MappingNode || len(n.Content) == 0 {
		v, err := NodeValue(n)
		if err != nil {
			if prefix != "" {
				return fmt.Errorf("at %s: %w", prefix, err)
			}
			return err
		}
		out[prefix] = v
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		childPath := n.Content[i].Value
		if prefix != "" {
			childPath = prefix + "." + childPath
		}
		if err := flattenInto(n.Content[i+1], childPath, out); err != nil {
			return err
		}
	}
	return nil
}
