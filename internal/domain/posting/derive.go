package posting

import (
	"fmt"
	"strings"
)

// AccountID is a concrete ledger account identifier, conventionally a
// chart-of-accounts code
type AccountID string

// DottedPath addresses a value inside a master-data context, e.g.
// "finance.customer.ar_control"
type DottedPath string

// Segments returns the dotted segments of the path
func (p DottedPath) Segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), ".")
}

// String returns the string representation
func (p DottedPath) String() string {
	return string(p)
}

// DerivationError signals that an account could not be derived from a
// path. This is always a data problem (missing master data), never a
// rule-definition problem: the caller stages or rejects the event instead
// of silently defaulting.
type DerivationError struct {
	Path DottedPath
}

// Error implements the error interface
func (e *DerivationError) Error() string {
	return fmt.Sprintf("cannot derive account from path %q", e.Path)
}

// Context is the master-data context a derivation path is resolved
// against: a nested map assembled from the records relevant to the event
// (customer, product, vendor, tax jurisdiction, payment method). Defaults
// from the organization's finance policy are injected by the caller
// before resolution; this layer never falls back on its own.
type Context map[string]any

// Set writes a value at a dotted path, creating intermediate maps
func (c Context) Set(path DottedPath, value any) {
	segs := path.Segments()
	if len(segs) == 0 {
		return
	}
	node := c
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg].(Context)
		if !ok {
			if raw, exists := node[seg].(map[string]any); exists {
				child = Context(raw)
			} else {
				child = Context{}
			}
			node[seg] = child
		}
		node = child
	}
	node[segs[len(segs)-1]] = value
}

// SetIfAbsent writes a value at a dotted path only when nothing is there
// yet. Used to layer finance-policy defaults under looked-up master data.
func (c Context) SetIfAbsent(path DottedPath, value any) {
	if _, err := c.resolve(path); err != nil {
		c.Set(path, value)
	}
}

func (c Context) resolve(path DottedPath) (any, error) {
	segs := path.Segments()
	if len(segs) == 0 {
		return nil, &DerivationError{Path: path}
	}
	var current any = c
	for _, seg := range segs {
		var node Context
		switch t := current.(type) {
		case Context:
			node = t
		case map[string]any:
			node = Context(t)
		default:
			return nil, &DerivationError{Path: path}
		}
		next, ok := node[seg]
		if !ok || next == nil {
			return nil, &DerivationError{Path: path}
		}
		current = next
	}
	return current, nil
}

// DeriveAccount resolves a dotted path against the context into a
// concrete ledger account identifier. The path is walked segment by
// segment; any undefined or nil segment fails immediately with a
// DerivationError.
func DeriveAccount(path DottedPath, ctx Context) (AccountID, error) {
	value, err := ctx.resolve(path)
	if err != nil {
		return "", err
	}
	switch t := value.(type) {
	case AccountID:
		if t == "" {
			return "", &DerivationError{Path: path}
		}
		return t, nil
	case string:
		if t == "" {
			return "", &DerivationError{Path: path}
		}
		return AccountID(t), nil
	}
	return "", &DerivationError{Path: path}
}
