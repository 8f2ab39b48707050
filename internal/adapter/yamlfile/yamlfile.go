// Package yamlfile reads and writes run configurations as YAML documents.
// Decoding goes through yaml.Node so mapping order and scalar types survive:
// 2 stays an integer, 2.0 a float and "2" a string.
package yamlfile

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/crs4/tdm/internal/wrf"
	"gopkg.in/yaml.v3"
)

const (
	tagInt       = "!!int"
	tagFloat     = "!!float"
	tagBool      = "!!bool"
	tagStr       = "!!str"
	tagNull      = "!!null"
	tagTimestamp = "!!timestamp"
	tagMerge     = "!!merge"
)

// Load parses the YAML file at path.
func Load(path string) (*wrf.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a single YAML document whose top level is a mapping.
func Parse(r io.Reader) (*wrf.Tree, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty document: %w", wrf.ErrConfig)
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, fmt.Errorf("empty document: %w", wrf.ErrConfig)
		}
		root = root.Content[0]
	}
	v, err := convert(root)
	if err != nil {
		return nil, err
	}
	t, ok := v.AsMap()
	if !ok {
		return nil, fmt.Errorf("top level is a %s, not a mapping: %w", v.Kind(), wrf.ErrConfig)
	}
	return t, nil
}

// ParseScalar interprets s the way a YAML document would: "131" is an int,
// "true" a bool, "0.5" a float and anything else a string.
func ParseScalar(s string) (wrf.Value, error) {
	if strings.TrimSpace(s) == "" {
		return wrf.String(s), nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		return wrf.Value{}, fmt.Errorf("parse %q: %w", s, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return wrf.String(s), nil
	}
	n := doc.Content[0]
	if n.Kind != yaml.ScalarNode {
		return wrf.Value{}, fmt.Errorf("%q is not a scalar: %w", s, wrf.ErrConfig)
	}
	return convert(n)
}

func convert(n *yaml.Node) (wrf.Value, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return convert(n.Alias)
	case yaml.MappingNode:
		t := wrf.NewTree()
		if err := fillMapping(t, n); err != nil {
			return wrf.Value{}, err
		}
		return wrf.MapValue(t), nil
	case yaml.ScalarNode:
		return convertScalar(n)
	case yaml.SequenceNode:
		return wrf.Value{}, fmt.Errorf("line %d: sequences are not supported: %w", n.Line, wrf.ErrConfig)
	default:
		return wrf.Value{}, fmt.Errorf("line %d: unexpected yaml node kind %d: %w", n.Line, n.Kind, wrf.ErrConfig)
	}
}

func fillMapping(t *wrf.Tree, n *yaml.Node) error {
	seen := make(map[string]bool, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.ShortTag() == tagMerge {
			if err := merge(t, v, seen); err != nil {
				return err
			}
			continue
		}
		if k.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: mapping keys must be scalars: %w", k.Line, wrf.ErrConfig)
		}
		if seen[k.Value] {
			return fmt.Errorf("line %d: duplicate key %q: %w", k.Line, k.Value, wrf.ErrConfig)
		}
		seen[k.Value] = true
		val, err := convert(v)
		if err != nil {
			return fmt.Errorf("%s: %w", k.Value, err)
		}
		t.Set(k.Value, val)
	}
	return nil
}

// merge applies a "<<" key. Explicit keys win over merged ones regardless of
// position.
func merge(t *wrf.Tree, src *yaml.Node, explicit map[string]bool) error {
	if src.Kind == yaml.AliasNode {
		src = src.Alias
	}
	if src.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: merge value must be a mapping: %w", src.Line, wrf.ErrConfig)
	}
	merged := wrf.NewTree()
	if err := fillMapping(merged, src); err != nil {
		return err
	}
	merged.Range(func(k string, v wrf.Value) bool {
		if !explicit[k] {
			t.Set(k, v)
		}
		return true
	})
	return nil
}

func convertScalar(n *yaml.Node) (wrf.Value, error) {
	switch n.ShortTag() {
	case tagInt:
		var i int64
		if err := n.Decode(&i); err != nil {
			return wrf.Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return wrf.Int(i), nil
	case tagFloat:
		var f float64
		if err := n.Decode(&f); err != nil {
			return wrf.Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return wrf.Float(f), nil
	case tagBool:
		var b bool
		if err := n.Decode(&b); err != nil {
			return wrf.Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return wrf.Bool(b), nil
	case tagStr, tagTimestamp:
		return wrf.String(n.Value), nil
	case tagNull:
		return wrf.Value{}, fmt.Errorf("line %d: null values are not supported: %w", n.Line, wrf.ErrConfig)
	default:
		return wrf.Value{}, fmt.Errorf("line %d: unsupported tag %s: %w", n.Line, n.Tag, wrf.ErrConfig)
	}
}

// Write encodes t as a YAML mapping in the tree's key order.
func Write(w io.Writer, t *wrf.Tree) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(toNode(wrf.MapValue(t))); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func toNode(v wrf.Value) *yaml.Node {
	switch v.Kind() {
	case wrf.KindMap:
		m, _ := v.AsMap()
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		m.Range(func(k string, child wrf.Value) bool {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: tagStr, Value: k},
				toNode(child))
			return true
		})
		return n
	case wrf.KindInt:
		i, _ := v.AsInt()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagInt, Value: strconv.FormatInt(i, 10)}
	case wrf.KindFloat:
		f, _ := v.AsFloat()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagFloat, Value: formatFloat(f)}
	case wrf.KindBool:
		b, _ := v.AsBool()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagBool, Value: strconv.FormatBool(b)}
	default:
		s, _ := v.AsString()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagStr, Value: s}
	}
}

// formatFloat keeps a decimal point so the value reads back as a float.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
