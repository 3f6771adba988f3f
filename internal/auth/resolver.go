package auth

import (
	"context"
	"fmt"
)

// Record carries the scope-relevant fields of a loaded resource. Guards map
// their concrete models onto it; resources without own/assigned semantics
// (endpoints) simply leave CreatedByID zero and AssignedToID nil.
type Record struct {
	// GroupID is the group currently responsible for the record.
	GroupID *uint64
	// OwnerGroupID is the creating user's group at creation time.
	OwnerGroupID *uint64
	// CreatedByID is the user who created the record.
	CreatedByID uint64
	// AssignedToID is the user the record is assigned to, if any.
	AssignedToID *uint64
	// Private restricts visibility to creator and assignee regardless of
	// any global or group capability.
	Private bool
}

// FilterSpec describes, for one principal and action, which disjuncts a list
// query must include. Guards translate it into a query predicate.
type FilterSpec struct {
	// Everything is set when the principal passes unconditionally
	// (superuser, master key or global tier). The privacy predicate still
	// applies unless Superuser is also set.
	Everything bool
	// Superuser additionally lifts the privacy predicate.
	Superuser bool
	// GroupIDs is the descendant closure of the principal's group when the
	// group tier is held; empty otherwise.
	GroupIDs []uint64
	// Own is set when the own tier is held (created-by-me).
	Own bool
	// Assigned is set when the assigned tier is held, or when the own tier
	// is held for the read action (read-own includes assigned-to-me).
	Assigned bool
}

// Empty reports whether no tier grants any visibility.
func (f FilterSpec) Empty() bool {
	return !f.Everything && len(f.GroupIDs) == 0 && !f.Own && !f.Assigned
}

// Resolver decides which scope tiers a principal holds for an action and
// whether a concrete record matches any of them. Tiers are evaluated
// independently and OR-composed.
type Resolver struct {
	hierarchy *Hierarchy
}

// NewResolver creates a resolver using the given group hierarchy.
func NewResolver(hierarchy *Hierarchy) *Resolver {
	return &Resolver{hierarchy: hierarchy}
}

// Allowed reports whether the principal may perform the action on the loaded
// record. Privacy is checked before any tier: a private record is visible
// only to its creator or assignee, with the superuser as the sole exception.
func (r *Resolver) Allowed(ctx context.Context, p *Principal, resource, action string, rec Record) (bool, error) {
	if p.User.Superuser {
		return true, nil
	}

	if rec.Private && !recordMine(p, rec) {
		return false, nil
	}

	// Unconditional tiers: master key, then global.
	if p.HasCapability(resource, action, ScopeAny) {
		return true, nil
	}

	if p.HasCapability(resource, action, ScopeGlobal) {
		return true, nil
	}

	if p.HasCapability(resource, action, ScopeGroup) && p.User.GroupID != nil {
		descendants, err := r.hierarchy.Descendants(ctx, *p.User.GroupID)
		if err != nil {
			return false, fmt.Errorf("group tier check: %w", err)
		}

		if inSet(rec.GroupID, descendants) || inSet(rec.OwnerGroupID, descendants) {
			return true, nil
		}
	}

	if p.HasCapability(resource, action, ScopeAssigned) && assignedTo(p, rec) {
		return true, nil
	}

	if p.HasCapability(resource, action, ScopeOwn) {
		if rec.CreatedByID == p.User.ID {
			return true, nil
		}

		// Read-own covers records assigned to me as well.
		if action == ActionRead && assignedTo(p, rec) {
			return true, nil
		}
	}

	return false, nil
}

// FilterFor computes the disjuncts a list query needs for the principal and
// action. The caller must still intersect with the privacy predicate unless
// Superuser is set.
func (r *Resolver) FilterFor(ctx context.Context, p *Principal, resource, action string) (FilterSpec, error) {
	if p.User.Superuser {
		return FilterSpec{Everything: true, Superuser: true}, nil
	}

	if p.HasCapability(resource, action, ScopeAny) || p.HasCapability(resource, action, ScopeGlobal) {
		return FilterSpec{Everything: true}, nil
	}

	var spec FilterSpec

	if p.HasCapability(resource, action, ScopeGroup) && p.User.GroupID != nil {
		descendants, err := r.hierarchy.Descendants(ctx, *p.User.GroupID)
		if err != nil {
			return FilterSpec{}, fmt.Errorf("group tier filter: %w", err)
		}

		spec.GroupIDs = make([]uint64, 0, len(descendants))
		for id := range descendants {
			spec.GroupIDs = append(spec.GroupIDs, id)
		}
	}

	if p.HasCapability(resource, action, ScopeAssigned) {
		spec.Assigned = true
	}

	if p.HasCapability(resource, action, ScopeOwn) {
		spec.Own = true

		if action == ActionRead {
			spec.Assigned = true
		}
	}

	return spec, nil
}

func recordMine(p *Principal, rec Record) bool {
	return rec.CreatedByID == p.User.ID || assignedTo(p, rec)
}

func assignedTo(p *Principal, rec Record) bool {
	return rec.AssignedToID != nil && *rec.AssignedToID == p.User.ID
}

func inSet(id *uint64, set map[uint64]struct{}) bool {
	if id == nil {
		return false
	}

	_, ok := set[*id]

	return ok
}
