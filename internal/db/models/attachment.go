package models

import "time"

// Attachment represents a file attached to a ticket.
// Access to an attachment is decided by the authorization check on its
// parent ticket; attachments carry no scope fields of their own.
type Attachment struct {
	// ID is the unique identifier for the attachment.
	ID uint64 `gorm:"primaryKey"`
	// TicketID is the parent ticket.
	TicketID uint64 `gorm:"index;not null"`
	// Ticket is the associated ticket (loaded via foreign key).
	// When a ticket is deleted, its attachments are automatically removed (CASCADE).
	Ticket Ticket `gorm:"foreignKey:TicketID;constraint:OnDelete:CASCADE"`
	// FileName is the original name of the uploaded file.
	FileName string `gorm:"size:255;not null"`
	// ContentType is the MIME type reported at upload.
	ContentType string `gorm:"size:100"`
	// Size is the file size in bytes.
	Size int64
	// UploadedByID is the user who uploaded the file.
	UploadedByID uint64 `gorm:"not null"`
	// CreatedAt is the timestamp when the attachment was created (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the Attachment model.
// This overrides GORM's default pluralized table naming.
func (Attachment) TableName() string {
	return "attachments"
}
