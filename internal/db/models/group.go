package models

import "time"

// Group represents an organizational unit in a forest hierarchy.
// A group owns the tickets and endpoints assigned to itself and to all of
// its descendant groups; group-scoped capabilities extend downward through
// ParentID edges. The hierarchy is assumed acyclic; traversal surfaces a
// data-integrity error if a cycle is encountered.
type Group struct {
	// ID is the unique identifier for the group.
	ID uint64 `gorm:"primaryKey"`
	// Name is the display name of the group.
	Name string `gorm:"size:100;not null"`
	// ParentID is the parent group, nil for roots of the forest.
	ParentID *uint64
	// Parent is the associated parent group (loaded via foreign key).
	Parent *Group `gorm:"foreignKey:ParentID;references:ID;constraint:OnDelete:SET NULL,OnUpdate:CASCADE"`
	// Description provides a human-readable explanation of the group's purpose.
	Description string `gorm:"size:255"`
	// CreatedAt is the timestamp when the group was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the group was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Group model.
// This overrides GORM's default pluralized table naming.
func (Group) TableName() string {
	return "groups"
}
