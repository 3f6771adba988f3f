// Package session persists issued login sessions.
// Sessions are first-class relational rows validated fresh on every request;
// there is no in-memory liveness cache, so deactivating a row revokes the
// matching session token on its next validation.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/incidenta/incidenta/internal/db/models"
)

// ErrSessionNotFound is returned when a session id does not resolve to a row.
var ErrSessionNotFound = errors.New("session not found")

// Store provides CRUD access to session rows.
type Store struct {
	db *gorm.DB
}

// NewStore creates a session store on top of the given database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new active session for the user. It never deduplicates;
// each successful login gets its own row.
func (s *Store) Create(ctx context.Context, userID uint64, ip, userAgent string) (*models.Session, error) {
	sess := models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		IP:        ip,
		UserAgent: userAgent,
		Active:    true,
	}

	if err := s.db.WithContext(ctx).Create(&sess).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &sess, nil
}

// GetByID retrieves a session by its id.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Session, error) {
	var sess models.Session

	err := s.db.WithContext(ctx).Where("id = ?", id).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return &sess, nil
}

// Deactivate marks a single session inactive.
func (s *Store) Deactivate(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", id).
		Update("active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate session: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// DeactivateAllExcept deactivates every active session of the user except the
// one to keep, and returns how many sessions were revoked.
func (s *Store) DeactivateAllExcept(ctx context.Context, userID uint64, keepID string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("user_id = ? AND id <> ? AND active = ?", userID, keepID, true).
		Update("active", false)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to deactivate sessions: %w", result.Error)
	}

	return result.RowsAffected, nil
}
