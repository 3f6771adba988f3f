package models

import "time"

// Session represents an issued login session.
// A session-class token is valid only while its session row is active and
// owned by the token's subject; deactivation on logout or "logout others"
// revokes the token on its next validation.
type Session struct {
	// ID is the unique session identifier embedded in session-class tokens.
	ID string `gorm:"primaryKey;size:36"`
	// UserID is the owner of the session.
	UserID uint64 `gorm:"index;not null"`
	// User is the associated user (loaded via foreign key).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	// IP is the remote address observed at login.
	IP string `gorm:"size:45"`
	// UserAgent is the client user agent observed at login.
	UserAgent string `gorm:"size:255"`
	// Active indicates whether the session is still usable.
	Active bool `gorm:"default:true"`
	// CreatedAt is the timestamp when the session was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the session was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Session model.
// This overrides GORM's default pluralized table naming.
func (Session) TableName() string {
	return "sessions"
}
