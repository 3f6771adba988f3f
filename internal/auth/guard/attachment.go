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

// AttachmentGuard authorizes access to ticket attachments. An attachment has
// no scope fields of its own; the decision defers to the parent ticket's
// group, ownership and privacy fields under the attachment capability.
type AttachmentGuard struct {
	db       *gorm.DB
	resolver *auth.Resolver
	sink     *audit.Dispatcher
}

// NewAttachmentGuard creates an attachment guard.
func NewAttachmentGuard(db *gorm.DB, resolver *auth.Resolver, sink *audit.Dispatcher) *AttachmentGuard {
	return &AttachmentGuard{db: db, resolver: resolver, sink: sink}
}

// Authorize loads the attachment and its parent ticket and decides access
// for the action against the parent's fields.
func (g *AttachmentGuard) Authorize(
	ctx context.Context,
	p *auth.Principal,
	id uint64,
	action string,
) (*models.Attachment, error) {
	var attachment models.Attachment

	err := g.db.WithContext(ctx).First(&attachment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, auth.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load attachment: %w", err)
	}

	var parent models.Ticket

	err = g.db.WithContext(ctx).First(&parent, attachment.TicketID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, auth.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load parent ticket: %w", err)
	}

	allowed, err := g.resolver.Allowed(ctx, p, ResourceAttachment, action, ticketRecord(&parent))
	if err != nil {
		return nil, err
	}

	if !allowed {
		emitDenied(g.sink, p.User.ID, ResourceAttachment, action)
		return nil, auth.ErrPermissionDenied
	}

	return &attachment, nil
}

// AuthorizeCreate decides whether the principal may attach a file to the
// given ticket. The decision runs against the parent ticket's fields.
func (g *AttachmentGuard) AuthorizeCreate(ctx context.Context, p *auth.Principal, ticketID uint64) (*models.Ticket, error) {
	var parent models.Ticket

	err := g.db.WithContext(ctx).First(&parent, ticketID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, auth.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load parent ticket: %w", err)
	}

	allowed, err := g.resolver.Allowed(ctx, p, ResourceAttachment, auth.ActionCreate, ticketRecord(&parent))
	if err != nil {
		return nil, err
	}

	if !allowed {
		emitDenied(g.sink, p.User.ID, ResourceAttachment, auth.ActionCreate)
		return nil, auth.ErrPermissionDenied
	}

	return &parent, nil
}
