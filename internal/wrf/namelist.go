package wrf

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Variables WRF derives from the domain tree. They are always generated and
// take precedence over same-named settings.
const (
	domainsGroup = "domains"
	maxDomVar    = "max_dom"
	gridIDVar    = "grid_id"
	parentIDVar  = "parent_id"
)

type namelistVar struct {
	source string // dotted key it was rendered from
	values []string
}

// RenderNamelist writes the configuration as a Fortran namelist. The first
// segment of a dotted key is the group and the remaining segments joined
// with "_" are the variable name. Keys set by any domain are written as one
// column per domain in DomainsSequence order, each resolved with Resolve.
func RenderNamelist(w io.Writer, c *Configurator) error {
	groups := map[string]map[string]namelistVar{}
	add := func(key string, values []string) error {
		group, name, err := namelistName(key)
		if err != nil {
			return err
		}
		if group == domainsGroup && (name == maxDomVar || name == gridIDVar || name == parentIDVar) {
			return nil
		}
		vars := groups[group]
		if vars == nil {
			vars = map[string]namelistVar{}
			groups[group] = vars
		}
		if prev, ok := vars[name]; ok && prev.source != key {
			return fmt.Errorf("keys %q and %q both render as &%s %s: %w", prev.source, key, group, name, ErrConfig)
		}
		vars[name] = namelistVar{source: key, values: values}
		return nil
	}

	domainKeys := c.domainKeys()
	perDomain := make(map[string]bool, len(domainKeys))
	for _, key := range domainKeys {
		perDomain[key] = true
		column := make([]string, 0, len(c.sequence))
		for _, name := range c.sequence {
			v, err := c.Resolve(name, key)
			if err != nil {
				return err
			}
			column = append(column, formatNamelistValue(v))
		}
		if err := add(key, column); err != nil {
			return err
		}
	}
	for _, key := range c.globalOrder {
		if perDomain[key] {
			continue
		}
		if err := add(key, []string{formatNamelistValue(c.global[key])}); err != nil {
			return err
		}
	}

	domainVars := groups[domainsGroup]
	if domainVars == nil {
		domainVars = map[string]namelistVar{}
		groups[domainsGroup] = domainVars
	}
	gridIDs := make([]string, 0, len(c.sequence))
	parentIDs := make([]string, 0, len(c.sequence))
	for _, d := range c.Domains() {
		gridIDs = append(gridIDs, strconv.Itoa(d.ID))
		parentID := 1
		if !d.IsRoot() {
			parentID = c.domains[d.Parent].ID
		}
		parentIDs = append(parentIDs, strconv.Itoa(parentID))
	}
	domainVars[maxDomVar] = namelistVar{values: []string{strconv.Itoa(len(c.sequence))}}
	domainVars[gridIDVar] = namelistVar{values: gridIDs}
	domainVars[parentIDVar] = namelistVar{values: parentIDs}

	return writeNamelist(w, groups)
}

// domainKeys lists every key set by at least one domain, in sequence order of
// first appearance.
func (c *Configurator) domainKeys() []string {
	seen := map[string]bool{}
	var keys []string
	for _, name := range c.sequence {
		for _, k := range c.domains[name].order {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

func namelistName(key string) (group, name string, err error) {
	group, rest, ok := strings.Cut(key, pathSep)
	if !ok || group == "" || rest == "" {
		return "", "", fmt.Errorf("key %q has no namelist group: %w", key, ErrConfig)
	}
	return group, strings.ReplaceAll(rest, pathSep, "_"), nil
}

func formatNamelistValue(v Value) string {
	switch v.Kind() {
	case KindInt:
		n, _ := v.AsInt()
		return strconv.FormatInt(n, 10)
	case KindFloat:
		f, _ := v.AsFloat()
		s := strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	case KindBool:
		if b, _ := v.AsBool(); b {
			return ".true."
		}
		return ".false."
	default:
		s, _ := v.AsString()
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
}

func writeNamelist(w io.Writer, groups map[string]map[string]namelistVar) error {
	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, g)
	}
	sort.Strings(names)

	bw := bufio.NewWriter(w)
	for _, g := range names {
		vars := groups[g]
		keys := make([]string, 0, len(vars))
		for k := range vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintf(bw, "&%s\n", g)
		for _, k := range keys {
			fmt.Fprintf(bw, " %-24s = %s,\n", k, strings.Join(vars[k].values, ", "))
		}
		fmt.Fprint(bw, "/\n\n")
	}
	return bw.Flush()
}
