package auth

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/incidenta/incidenta/internal/db/models"
)

// Registry maps capability key strings to their parsed form and seed
// metadata. It is built once from the permission table; a malformed key in
// seed data fails registry construction instead of silently never matching.
type Registry struct {
	caps map[string]Capability
	meta map[string]models.Permission
}

// NewRegistry parses and indexes the given permission rows.
func NewRegistry(perms []models.Permission) (*Registry, error) {
	r := &Registry{
		caps: make(map[string]Capability, len(perms)),
		meta: make(map[string]models.Permission, len(perms)),
	}

	for _, perm := range perms {
		parsed, err := ParseKey(perm.Key)
		if err != nil {
			return nil, fmt.Errorf("permission %q: %w", perm.Key, err)
		}

		r.caps[perm.Key] = parsed
		r.meta[perm.Key] = perm
	}

	return r, nil
}

// LoadRegistry reads all permission rows from the database and builds a
// registry from them.
func LoadRegistry(db *gorm.DB) (*Registry, error) {
	var perms []models.Permission
	if err := db.Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}

	return NewRegistry(perms)
}

// Capability returns the parsed capability for a key.
func (r *Registry) Capability(key string) (Capability, bool) {
	parsed, ok := r.caps[key]
	return parsed, ok
}

// Lookup returns the seed metadata for a key.
func (r *Registry) Lookup(key string) (models.Permission, bool) {
	meta, ok := r.meta[key]
	return meta, ok
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	return len(r.caps)
}
