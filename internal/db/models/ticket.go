package models

import "time"

// TicketStatus represents the lifecycle state of a ticket.
type TicketStatus string

const (
	// TicketStatusOpen indicates a newly created or reopened ticket.
	TicketStatusOpen TicketStatus = "open"
	// TicketStatusInProgress indicates a ticket being worked on.
	TicketStatusInProgress TicketStatus = "in_progress"
	// TicketStatusClosed indicates a resolved ticket.
	TicketStatusClosed TicketStatus = "closed"
)

// Ticket represents an incident ticket.
// GroupID is the group currently responsible for the ticket; OwnerGroupID is
// the creator's group at creation time. Both are nil only for private items.
// A private ticket is visible exclusively to its creator and assignee,
// regardless of any global or group capability.
type Ticket struct {
	// ID is the unique identifier for the ticket.
	ID uint64 `gorm:"primaryKey"`
	// Title is the short summary of the incident.
	Title string `gorm:"size:255;not null"`
	// Description is the free-form incident description.
	Description string `gorm:"type:text"`
	// Status is the lifecycle state of the ticket.
	Status TicketStatus `gorm:"type:varchar(20);not null;default:'open'"`
	// Severity is the analyst-assigned severity (informational only here).
	Severity string `gorm:"size:20"`
	// GroupID is the group currently responsible for the ticket.
	GroupID *uint64 `gorm:"index"`
	// OwnerGroupID is the creator's group, set at creation.
	OwnerGroupID *uint64 `gorm:"index"`
	// CreatedByID is the user who created the ticket.
	CreatedByID uint64 `gorm:"index;not null"`
	// AssignedToID is the user currently assigned, nil when unassigned.
	AssignedToID *uint64 `gorm:"index"`
	// Private restricts visibility to the creator and assignee only.
	Private bool `gorm:"column:is_private;default:false"`
	// CreatedAt is the timestamp when the ticket was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the ticket was last updated (managed by GORM).
	UpdatedAt time.Time
	// DeletedAt is the soft delete timestamp (nil if not deleted, managed by GORM).
	DeletedAt *time.Time
}

// TableName specifies the database table name for the Ticket model.
// This overrides GORM's default pluralized table naming.
func (Ticket) TableName() string {
	return "tickets"
}
