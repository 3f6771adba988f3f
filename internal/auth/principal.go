package auth

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/incidenta/incidenta/internal/db/models"
)

// Principal is an authenticated user together with the parsed capability set
// resolved from all assigned roles. It is the unit every authorization
// decision operates on.
type Principal struct {
	// User is the account backing this principal.
	User models.User

	caps map[Capability]struct{}
}

// NewPrincipal constructs a principal with a preloaded capability set.
func NewPrincipal(user models.User, caps []Capability) *Principal {
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}

	return &Principal{User: user, caps: set}
}

// Has reports whether the principal holds the exact capability.
func (p *Principal) Has(c Capability) bool {
	_, ok := p.caps[c]
	return ok
}

// HasCapability reports whether the principal holds the capability for the
// resource, action and tier.
func (p *Principal) HasCapability(resource, action string, scope Scope) bool {
	return p.Has(Capability{Resource: resource, Action: action, Scope: scope})
}

// Capabilities returns the principal's capability set as a slice.
func (p *Principal) Capabilities() []Capability {
	out := make([]Capability, 0, len(p.caps))
	for c := range p.caps {
		out = append(out, c)
	}

	return out
}

// LoadPrincipal resolves the user's capability set by joining permissions
// through role assignments and parses every key into its tagged form.
// A malformed key in the database is a data-integrity error, not a miss.
func LoadPrincipal(ctx context.Context, db *gorm.DB, user models.User) (*Principal, error) {
	var keys []string

	err := db.WithContext(ctx).Table("permissions").
		Select("DISTINCT permissions.key").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ?", user.ID).
		Pluck("permissions.key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load user permissions: %w", err)
	}

	caps := make([]Capability, 0, len(keys))

	for _, key := range keys {
		c, err := ParseKey(key)
		if err != nil {
			return nil, fmt.Errorf("user %d: %w", user.ID, err)
		}

		caps = append(caps, c)
	}

	return NewPrincipal(user, caps), nil
}
