package wrf

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

const (
	globalSection  = "global"
	domainsSection = "domains"
)

// Domain is one nested simulation grid.
type Domain struct {
	Name   string
	ID     int
	Parent string // empty for the root

	settings map[string]Value
	order    []string
}

// Get returns the domain's own value for a dotted key. "parent" returns the
// parent's name; the root has none.
func (d *Domain) Get(key string) (Value, error) {
	if key == parentKey {
		if d.Parent == "" {
			return Value{}, fmt.Errorf("domain %q is the root and has no parent: %w", d.Name, ErrKeyNotFound)
		}
		return String(d.Parent), nil
	}
	v, ok := d.settings[key]
	if !ok {
		return Value{}, fmt.Errorf("@%s.%s: %w", d.Name, key, ErrKeyNotFound)
	}
	return v, nil
}

// Keys returns the domain's setting keys in declaration order, excluding parent.
func (d *Domain) Keys() []string {
	return append([]string(nil), d.order...)
}

// IsRoot reports whether the domain has no parent.
func (d *Domain) IsRoot() bool { return d.Parent == "" }

func (d *Domain) set(key string, v Value) {
	if _, ok := d.settings[key]; !ok {
		d.order = append(d.order, key)
	}
	d.settings[key] = v
}

// Configurator holds a resolved run configuration: the flattened global
// settings and the domain tree. It is not safe for concurrent use while
// Update is running.
type Configurator struct {
	global      map[string]Value
	globalOrder []string
	domains     map[string]*Domain
	sequence    []string
}

// Make builds a Configurator from a raw nested mapping with "global" and
// "domains" sections. Every failure wraps ErrConfig.
func Make(raw *Tree) (*Configurator, error) {
	globalTree, err := section(raw, globalSection)
	if err != nil {
		return nil, err
	}
	domainsTree, err := section(raw, domainsSection)
	if err != nil {
		return nil, err
	}

	c := &Configurator{domains: make(map[string]*Domain, domainsTree.Len())}
	c.globalOrder, c.global, err = Flatten(globalTree)
	if err != nil {
		return nil, fmt.Errorf("global: %w", err)
	}

	declared := domainsTree.Keys()
	for _, name := range declared {
		v, _ := domainsTree.Get(name)
		d, err := newDomain(name, v)
		if err != nil {
			return nil, err
		}
		c.domains[name] = d
	}

	root, err := validateHierarchy(declared, c.domains)
	if err != nil {
		return nil, err
	}

	c.sequence = breadthFirst(root, declared, c.domains)
	for i, name := range c.sequence {
		c.domains[name].ID = i + 1
	}
	return c, nil
}

func section(raw *Tree, name string) (*Tree, error) {
	v, ok := raw.Get(name)
	if !ok {
		return nil, fmt.Errorf("missing %q section: %w", name, ErrConfig)
	}
	t, ok := v.AsMap()
	if !ok {
		return nil, fmt.Errorf("%q section is a %s, not a mapping: %w", name, v.Kind(), ErrConfig)
	}
	return t, nil
}

func newDomain(name string, body Value) (*Domain, error) {
	if name == "" || strings.Contains(name, pathSep) {
		return nil, fmt.Errorf("domain name %q must be non-empty and contain no %q: %w", name, pathSep, ErrConfig)
	}
	tree, ok := body.AsMap()
	if !ok {
		return nil, fmt.Errorf("domain %q is a %s, not a mapping: %w", name, body.Kind(), ErrConfig)
	}

	d := &Domain{Name: name}
	order, leaves, err := Flatten(tree)
	if err != nil {
		return nil, fmt.Errorf("domain %q: %w", name, err)
	}
	if pv, ok := leaves[parentKey]; ok {
		parent, isString := pv.AsString()
		if !isString || parent == "" {
			return nil, fmt.Errorf("domain %q: parent must be a domain name, got %s %q: %w",
				name, pv.Kind(), pv.String(), ErrConfig)
		}
		d.Parent = parent
		delete(leaves, parentKey)
		order = without(order, parentKey)
	}
	d.settings = leaves
	d.order = order
	return d, nil
}

func without(keys []string, drop string) []string {
	out := keys[:0:0]
	for _, k := range keys {
		if k != drop {
			out = append(out, k)
		}
	}
	return out
}

// validateHierarchy checks that the parent links form a single tree and
// returns the root's name.
func validateHierarchy(declared []string, domains map[string]*Domain) (string, error) {
	var roots []string
	for _, name := range declared {
		d := domains[name]
		if d.IsRoot() {
			roots = append(roots, name)
			continue
		}
		if _, ok := domains[d.Parent]; !ok {
			return "", fmt.Errorf("domain %q: parent %q is not declared: %w", name, d.Parent, ErrConfig)
		}
	}
	switch len(roots) {
	case 0:
		return "", fmt.Errorf("no root domain (every domain has a parent): %w", ErrConfig)
	case 1:
	default:
		return "", fmt.Errorf("ambiguous root, domains without parent: %s: %w", strings.Join(roots, ", "), ErrConfig)
	}

	for _, name := range declared {
		visited := map[string]bool{}
		for cur := name; cur != ""; cur = domains[cur].Parent {
			if visited[cur] {
				return "", fmt.Errorf("domain %q: cycle in parent chain at %q: %w", name, cur, ErrConfig)
			}
			visited[cur] = true
		}
	}
	return roots[0], nil
}

// breadthFirst orders domains outermost first, siblings in declaration order.
func breadthFirst(root string, declared []string, domains map[string]*Domain) []string {
	children := make(map[string][]string, len(declared))
	for _, name := range declared {
		if p := domains[name].Parent; p != "" {
			children[p] = append(children[p], name)
		}
	}

	seq := make([]string, 0, len(declared))
	queue := []string{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		seq = append(seq, cur)
		queue = append(queue, children[cur]...)
	}
	return seq
}

// Get resolves a global dotted path or a domain path of the form "@dom.key".
func (c *Configurator) Get(path string) (Value, error) {
	p, err := ParsePath(path)
	if err != nil {
		return Value{}, err
	}
	if !p.IsDomain() {
		v, ok := c.global[p.Key]
		if !ok {
			return Value{}, fmt.Errorf("%q: %w", path, ErrKeyNotFound)
		}
		return v, nil
	}
	d, ok := c.domains[p.Domain]
	if !ok {
		return Value{}, fmt.Errorf("%q: unknown domain %q: %w", path, p.Domain, ErrDomainNotFound)
	}
	return d.Get(p.Key)
}

// Domain returns the named domain.
func (c *Configurator) Domain(name string) (*Domain, error) {
	d, ok := c.domains[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrDomainNotFound)
	}
	return d, nil
}

// Domains returns the domains in DomainsSequence order.
func (c *Configurator) Domains() []*Domain {
	out := make([]*Domain, len(c.sequence))
	for i, name := range c.sequence {
		out[i] = c.domains[name]
	}
	return out
}

// DomainsSequence returns domain names ordered so that every domain follows
// its parent. The i-th name has ID i+1.
func (c *Configurator) DomainsSequence() []string {
	return append([]string(nil), c.sequence...)
}

// Keys returns the global keys in declaration order.
func (c *Configurator) Keys() []string {
	return append([]string(nil), c.globalOrder...)
}

// Resolve looks key up in the domain, then in each ancestor, then in the
// global settings.
func (c *Configurator) Resolve(domain, key string) (Value, error) {
	d, err := c.Domain(domain)
	if err != nil {
		return Value{}, err
	}
	for cur := d; cur != nil; cur = c.domains[cur.Parent] {
		if v, ok := cur.settings[key]; ok {
			return v, nil
		}
	}
	if v, ok := c.global[key]; ok {
		return v, nil
	}
	return Value{}, fmt.Errorf("%q in domain %q or its ancestors: %w", key, domain, ErrKeyNotFound)
}

// Update assigns every path in updates. Missing keys are inserted in sorted
// path order. All paths are checked before any assignment, so a failed call
// changes nothing. The parent of a domain cannot be changed.
func (c *Configurator) Update(updates map[string]Value) error {
	type assignment struct {
		path   Path
		value  Value
		domain *Domain
	}
	plan := make([]assignment, 0, len(updates))
	for _, raw := range slices.Sorted(maps.Keys(updates)) {
		v := updates[raw]
		p, err := ParsePath(raw)
		if err != nil {
			return err
		}
		if p.Key == "" {
			return fmt.Errorf("empty key: %w", ErrMalformedPath)
		}
		if !v.IsScalar() {
			return fmt.Errorf("%q: update value must be a scalar, got %s: %w", raw, v.Kind(), ErrConfig)
		}
		a := assignment{path: p, value: v}
		if p.IsDomain() {
			d, err := c.Domain(p.Domain)
			if err != nil {
				return err
			}
			if p.Key == parentKey {
				return fmt.Errorf("%q: the domain hierarchy is fixed at construction: %w", raw, ErrConfig)
			}
			a.domain = d
		}
		plan = append(plan, a)
	}

	for _, a := range plan {
		if a.domain != nil {
			a.domain.set(a.path.Key, a.value)
			continue
		}
		if _, ok := c.global[a.path.Key]; !ok {
			c.globalOrder = append(c.globalOrder, a.path.Key)
		}
		c.global[a.path.Key] = a.value
	}
	return nil
}

// UpdateAny is Update for plain Go values, converted with ValueOf.
func (c *Configurator) UpdateAny(updates map[string]any) error {
	converted := make(map[string]Value, len(updates))
	for path, x := range updates {
		v, err := ValueOf(x)
		if err != nil {
			return fmt.Errorf("%q: %w", path, err)
		}
		converted[path] = v
	}
	return c.Update(converted)
}

// Tree rebuilds the nested form with "global" and "domains" sections. Each
// non-root domain gets its parent key first.
func (c *Configurator) Tree() (*Tree, error) {
	global, err := Unflatten(c.globalOrder, c.global)
	if err != nil {
		return nil, fmt.Errorf("global: %w", err)
	}

	domains := NewTree()
	for _, name := range c.sequence {
		d := c.domains[name]
		order := d.order
		leaves := d.settings
		if !d.IsRoot() {
			order = append([]string{parentKey}, d.order...)
			leaves = make(map[string]Value, len(d.settings)+1)
			for k, v := range d.settings {
				leaves[k] = v
			}
			leaves[parentKey] = String(d.Parent)
		}
		body, err := Unflatten(order, leaves)
		if err != nil {
			return nil, fmt.Errorf("domain %q: %w", name, err)
		}
		domains.Set(name, MapValue(body))
	}

	out := NewTree()
	out.Set(globalSection, MapValue(global))
	out.Set(domainsSection, MapValue(domains))
	return out, nil
}
