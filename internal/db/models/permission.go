package models

import "time"

// Permission represents a capability in the authorization system.
// The Key follows the "resource:action" or "resource:action:tier" convention,
// where tier is one of global, group, own or assigned. A key without a tier
// suffix grants the action unconditionally (the escape-hatch tier above all
// others). Keys are validated at registry load; malformed keys fail fast.
type Permission struct {
	// ID is the unique identifier for the permission.
	ID uint64 `gorm:"primaryKey"`
	// Key is the unique capability key (e.g., "ticket:read:group").
	Key string `gorm:"unique;size:100;not null"`
	// Module groups related permissions for administration (e.g., "ticket").
	Module string `gorm:"size:100;not null"`
	// Description provides a human-readable explanation of what this permission grants.
	Description string `gorm:"size:255"`
	// CreatedAt is the timestamp when the permission was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the permission was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Permission model.
// This overrides GORM's default pluralized table naming.
func (Permission) TableName() string {
	return "permissions"
}
