// Package wrf resolves the hierarchical configuration of a WRF (Weather
// Research and Forecasting) run.
//
// # Configuration Shape
//
// A run is described by a nested mapping with exactly two top-level sections:
//
//	global:
//	  geogrid:
//	    io_form_geogrid: 2
//	  running:
//	    input:
//	      restart: false
//	domains:
//	  base:
//	    geometry:
//	      e_we: 130
//	  dom1:
//	    parent: base
//	    geometry:
//	      e_we: 200
//
// The global section holds settings shared by every domain. Each entry under
// domains describes one nested computational grid. A domain without a parent
// key is the root; every other domain names the domain it is nested in.
//
// # Dotted Paths
//
// Nested mappings are flattened into dotted keys: the leaf above is addressed
// as "running.input.restart". Domain settings are addressed by prefixing the
// domain name with "@":
//
//	running.input.restart      global setting
//	@dom1.geometry.e_we        setting of domain dom1
//	@dom1.parent               parent of dom1 (read only)
//
// The domain name ends at the first "." after the "@", so domain names may
// not contain dots.
//
// # Domain Ordering
//
// WRF numbers grids from 1 with the outermost grid first. The domains are
// ordered breadth-first starting at the root, visiting the children of each
// domain in the order they were declared. A domain's ID is its 1-based
// position in that sequence and never changes after construction.
//
// # Inheritance
//
// [Configurator.Get] and [Domain.Get] only look at the addressed scope.
// [Configurator.Resolve] walks up from a domain through its ancestors and
// finally to the global section, which is how namelist columns are filled
// for nested grids that do not override a setting.
//
// # Errors
//
// Every failure wraps one of [ErrConfig], [ErrDomainNotFound],
// [ErrKeyNotFound] or [ErrMalformedPath]; use [errors.Is] to classify.
package wrf
