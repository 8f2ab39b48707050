package wrf

import "errors"

var (
	// ErrConfig reports a structurally invalid configuration or update.
	ErrConfig = errors.New("invalid configuration")
	// ErrDomainNotFound reports a reference to an undeclared domain.
	ErrDomainNotFound = errors.New("domain not found")
	// ErrKeyNotFound reports a read of a key that is not present.
	ErrKeyNotFound = errors.New("key not found")
	// ErrMalformedPath reports a domain path that cannot be split into domain and key.
	ErrMalformedPath = errors.New("malformed path")
)
