package auth

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// GroupStore supplies the parent→children edge set of the group forest.
type GroupStore interface {
	// ChildrenOf returns the ids of the direct children of the group.
	// A group without children yields an empty slice, not an error.
	ChildrenOf(ctx context.Context, groupID uint64) ([]uint64, error)
}

// Hierarchy computes the transitive closure of descendant groups.
// There is no caching; callers invoke it once per authorization decision and
// always see the current edge set.
type Hierarchy struct {
	store GroupStore
}

// NewHierarchy creates a hierarchy resolver over the given edge store.
func NewHierarchy(store GroupStore) *Hierarchy {
	return &Hierarchy{store: store}
}

// Descendants returns the set of the group's descendants, inclusive of the
// group itself. Revisiting a group means the stored forest has a cycle and
// surfaces ErrGroupCycle instead of looping.
func (h *Hierarchy) Descendants(ctx context.Context, groupID uint64) (map[uint64]struct{}, error) {
	visited := map[uint64]struct{}{groupID: {}}
	queue := []uint64{groupID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children, err := h.store.ChildrenOf(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve children of group %d: %w", current, err)
		}

		for _, child := range children {
			if _, seen := visited[child]; seen {
				return nil, fmt.Errorf("%w: group %d reached twice", ErrGroupCycle, child)
			}

			visited[child] = struct{}{}
			queue = append(queue, child)
		}
	}

	return visited, nil
}

// GormGroupStore reads the group edge set from the groups table.
type GormGroupStore struct {
	db *gorm.DB
}

// NewGormGroupStore creates a GroupStore backed by the database.
func NewGormGroupStore(db *gorm.DB) *GormGroupStore {
	return &GormGroupStore{db: db}
}

// ChildrenOf returns the ids of the groups whose parent is groupID.
func (s *GormGroupStore) ChildrenOf(ctx context.Context, groupID uint64) ([]uint64, error) {
	var ids []uint64

	err := s.db.WithContext(ctx).Table("groups").
		Where("parent_id = ?", groupID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query child groups: %w", err)
	}

	return ids, nil
}
