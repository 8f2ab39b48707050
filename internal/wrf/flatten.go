package wrf

import (
	"fmt"
	"strings"
)

const pathSep = "."

// Flatten turns a nested tree into dotted leaf keys. It returns the keys in
// depth-first declaration order along with the leaf values. Empty nested
// mappings contribute no keys. A dotted key that spells the same path as a
// nested one (for example "a.b" next to a: {b: ...}) yields ErrConfig.
func Flatten(t *Tree) ([]string, map[string]Value, error) {
	var order []string
	leaves := make(map[string]Value)
	if err := flattenInto(t, "", &order, leaves); err != nil {
		return nil, nil, err
	}
	return order, leaves, nil
}

func flattenInto(t *Tree, prefix string, order *[]string, leaves map[string]Value) error {
	var err error
	t.Range(func(k string, v Value) bool {
		key := k
		if prefix != "" {
			key = prefix + pathSep + k
		}
		if sub, ok := v.AsMap(); ok {
			err = flattenInto(sub, key, order, leaves)
			return err == nil
		}
		if _, seen := leaves[key]; seen {
			err = fmt.Errorf("key %q is defined more than once: %w", key, ErrConfig)
			return false
		}
		*order = append(*order, key)
		leaves[key] = v
		return true
	})
	return err
}

// Unflatten rebuilds a nested tree from dotted keys, visiting keys in the
// given order. A key that is both a leaf and the prefix of another key
// cannot be represented and yields ErrConfig.
func Unflatten(order []string, leaves map[string]Value) (*Tree, error) {
	root := NewTree()
	for _, key := range order {
		v, ok := leaves[key]
		if !ok {
			continue
		}
		parts := strings.Split(key, pathSep)
		node := root
		for i, part := range parts[:len(parts)-1] {
			existing, ok := node.Get(part)
			if !ok {
				child := NewTree()
				node.Set(part, MapValue(child))
				node = child
				continue
			}
			child, isMap := existing.AsMap()
			if !isMap {
				return nil, fmt.Errorf("key %q conflicts with leaf %q: %w",
					key, strings.Join(parts[:i+1], pathSep), ErrConfig)
			}
			node = child
		}
		last := parts[len(parts)-1]
		if existing, ok := node.Get(last); ok && existing.Kind() == KindMap {
			return nil, fmt.Errorf("leaf %q conflicts with nested keys: %w", key, ErrConfig)
		}
		node.Set(last, v)
	}
	return root, nil
}
