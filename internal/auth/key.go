package auth

import (
	"fmt"
	"strings"
)

// Scope is the visibility tier of a capability.
type Scope string

const (
	// ScopeAny marks a capability without a tier suffix: an unconditional
	// grant that sits above all tiers.
	ScopeAny Scope = ""
	// ScopeGlobal grants the action on every record.
	ScopeGlobal Scope = "global"
	// ScopeGroup grants the action on records owned by the caller's group
	// or any of its descendants.
	ScopeGroup Scope = "group"
	// ScopeOwn grants the action on records the caller created.
	ScopeOwn Scope = "own"
	// ScopeAssigned grants the action on records assigned to the caller.
	ScopeAssigned Scope = "assigned"
)

// Common actions used by the built-in resources. Actions are free-form
// strings; only the tier spellings are fixed.
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionAssign = "assign"
	ActionList   = "list"
)

// Capability is the tagged form of a capability key: a (resource, action,
// scope) triple. Using a struct instead of raw strings makes unknown tiers a
// parse error instead of a key that silently never matches.
type Capability struct {
	Resource string
	Action   string
	Scope    Scope
}

// Key renders the capability in its canonical string form.
func (c Capability) Key() string {
	if c.Scope == ScopeAny {
		return c.Resource + ":" + c.Action
	}

	return c.Resource + ":" + c.Action + ":" + string(c.Scope)
}

// ParseKey parses a "resource:action" or "resource:action:tier" key.
// Only the four tier spellings global, group, own and assigned are
// recognized; anything else fails with ErrMalformedCapability.
func ParseKey(key string) (Capability, error) {
	parts := strings.Split(key, ":")

	switch len(parts) {
	case 2: //nolint:mnd // resource:action
		if parts[0] == "" || parts[1] == "" {
			return Capability{}, fmt.Errorf("%w: %q", ErrMalformedCapability, key)
		}

		return Capability{Resource: parts[0], Action: parts[1], Scope: ScopeAny}, nil

	case 3: //nolint:mnd // resource:action:tier
		if parts[0] == "" || parts[1] == "" {
			return Capability{}, fmt.Errorf("%w: %q", ErrMalformedCapability, key)
		}

		scope := Scope(parts[2])
		switch scope {
		case ScopeGlobal, ScopeGroup, ScopeOwn, ScopeAssigned:
			return Capability{Resource: parts[0], Action: parts[1], Scope: scope}, nil
		default:
			return Capability{}, fmt.Errorf("%w: unknown tier %q in %q", ErrMalformedCapability, parts[2], key)
		}

	default:
		return Capability{}, fmt.Errorf("%w: %q", ErrMalformedCapability, key)
	}
}
