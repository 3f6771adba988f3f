package guard

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/incidenta/incidenta/internal/audit"
	"github.com/incidenta/incidenta/internal/auth"
	"github.com/incidenta/incidenta/internal/db/models"
)

// EndpointGuard authorizes access to assets. Endpoints only have the group
// tier: the record carries no creator or assignee semantics.
type EndpointGuard struct {
	db       *gorm.DB
	resolver *auth.Resolver
	sink     *audit.Dispatcher
}

// NewEndpointGuard creates an endpoint guard.
func NewEndpointGuard(db *gorm.DB, resolver *auth.Resolver, sink *audit.Dispatcher) *EndpointGuard {
	return &EndpointGuard{db: db, resolver: resolver, sink: sink}
}

// Authorize loads the endpoint and decides access for the action. The create
// action short-circuits to an empty endpoint: object-level checks are
// meaningless before the object exists.
func (g *EndpointGuard) Authorize(
	ctx context.Context,
	p *auth.Principal,
	id uint64,
	action string,
) (*models.Endpoint, error) {
	if action == auth.ActionCreate {
		return &models.Endpoint{}, nil
	}

	var endpoint models.Endpoint

	err := g.db.WithContext(ctx).First(&endpoint, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, auth.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load endpoint: %w", err)
	}

	allowed, err := g.resolver.Allowed(ctx, p, ResourceEndpoint, action, auth.Record{
		GroupID: endpoint.GroupID,
	})
	if err != nil {
		return nil, err
	}

	if !allowed {
		emitDenied(g.sink, p.User.ID, ResourceEndpoint, action)
		return nil, auth.ErrPermissionDenied
	}

	return &endpoint, nil
}

// Filter builds the list predicate for the principal and action. Only the
// unconditional tiers and group membership contribute; endpoints have no
// privacy flag and no own or assigned columns.
func (g *EndpointGuard) Filter(
	ctx context.Context,
	p *auth.Principal,
	action string,
) (Filter, error) {
	spec, err := g.resolver.FilterFor(ctx, p, ResourceEndpoint, action)
	if err != nil {
		return nil, err
	}

	return func(tx *gorm.DB) *gorm.DB {
		if spec.Everything {
			return tx
		}

		if len(spec.GroupIDs) == 0 {
			return matchNothing(tx)
		}

		return tx.Where("group_id IN ?", spec.GroupIDs)
	}, nil
}
