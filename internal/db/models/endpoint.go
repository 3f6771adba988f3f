package models

import "time"

// Endpoint represents a managed asset (host) in the inventory.
// Endpoints are visible through group membership only; there are no own or
// assigned tiers for assets.
type Endpoint struct {
	// ID is the unique identifier for the endpoint.
	ID uint64 `gorm:"primaryKey"`
	// Hostname is the asset's hostname.
	Hostname string `gorm:"size:255;not null"`
	// Address is the primary IP address of the asset.
	Address string `gorm:"size:45"`
	// OS is the reported operating system.
	OS string `gorm:"size:100"`
	// GroupID is the group that owns the asset.
	GroupID *uint64 `gorm:"index"`
	// CreatedByID is the user who registered the asset.
	CreatedByID uint64 `gorm:"not null"`
	// CreatedAt is the timestamp when the endpoint was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the endpoint was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Endpoint model.
// This overrides GORM's default pluralized table naming.
func (Endpoint) TableName() string {
	return "endpoints"
}
