// Package guard implements per-resource object-level authorization.
//
// A guard composes the permission resolver, the group hierarchy and the
// caller identity to decide access to one already-loaded record, or to build
// a filter predicate for listing many. "Not found" and "not authorized" are
// both plain client errors; neither is retried or logged as a system fault.
package guard

import (
	"strings"

	"gorm.io/gorm"

	"github.com/incidenta/incidenta/internal/audit"
	"github.com/incidenta/incidenta/internal/auth"
)

// Resource names used in capability keys.
const (
	ResourceTicket     = "ticket"
	ResourceEndpoint   = "endpoint"
	ResourceAttachment = "attachment"
)

// Filter is a query predicate applied to a list query.
type Filter func(tx *gorm.DB) *gorm.DB

// matchNothing is the predicate for principals with no visibility at all.
func matchNothing(tx *gorm.DB) *gorm.DB {
	return tx.Where("1 = 0")
}

// tierDisjunction renders the OR of the held tiers as a grouped condition.
// Returns false when no tier grants anything.
func tierDisjunction(tx *gorm.DB, spec auth.FilterSpec, userID uint64) (*gorm.DB, bool) {
	var (
		conds []string
		args  []interface{}
	)

	if len(spec.GroupIDs) > 0 {
		conds = append(conds, "(group_id IN ? OR owner_group_id IN ?)")
		args = append(args, spec.GroupIDs, spec.GroupIDs)
	}

	if spec.Own {
		conds = append(conds, "created_by_id = ?")
		args = append(args, userID)
	}

	if spec.Assigned {
		conds = append(conds, "assigned_to_id = ?")
		args = append(args, userID)
	}

	if len(conds) == 0 {
		return tx, false
	}

	return tx.Where(strings.Join(conds, " OR "), args...), true
}

func emitDenied(sink *audit.Dispatcher, userID uint64, resource, action string) {
	if sink == nil {
		return
	}

	sink.Emit(audit.Event{
		Action: audit.ActionPermissionDenied,
		UserID: userID,
		Detail: resource + ":" + action,
	})
}
