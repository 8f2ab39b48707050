package wrf

import (
	"fmt"
	"strings"
)

const domainPrefix = "@"

// parentKey is the reserved domain key naming the enclosing domain.
const parentKey = "parent"

// Path is a parsed configuration address. Domain is empty for global paths.
type Path struct {
	Domain string
	Key    string
}

// IsDomain reports whether p addresses a domain setting.
func (p Path) IsDomain() bool { return p.Domain != "" }

// String returns the path in the form ParsePath accepts.
func (p Path) String() string {
	if p.IsDomain() {
		return domainPrefix + p.Domain + pathSep + p.Key
	}
	return p.Key
}

// ParsePath splits "@dom.key" at the first "." after the "@". Any other
// string is a global key and is returned unchanged.
func ParsePath(s string) (Path, error) {
	rest, ok := strings.CutPrefix(s, domainPrefix)
	if !ok {
		return Path{Key: s}, nil
	}
	dom, key, found := strings.Cut(rest, pathSep)
	if !found {
		return Path{}, fmt.Errorf("%q has no key after the domain name: %w", s, ErrMalformedPath)
	}
	if dom == "" {
		return Path{}, fmt.Errorf("%q has an empty domain name: %w", s, ErrMalformedPath)
	}
	if key == "" {
		return Path{}, fmt.Errorf("%q has an empty key: %w", s, ErrMalformedPath)
	}
	return Path{Domain: dom, Key: key}, nil
}
