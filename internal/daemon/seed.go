package daemon

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/incidenta/incidenta/internal/db/controller/setting"
	"github.com/incidenta/incidenta/internal/db/models"
)

// seedVersion is bumped whenever the seed catalog changes shape.
const seedVersion = "1"

const seedVersionKey = "seed_version"

// permissionCatalog is the full capability grid. Ticket and attachment rows
// carry all four tiers; endpoints only have the group tier plus global.
// Auditor master keys (no tier suffix) grant reads unconditionally.
func permissionCatalog() []models.Permission {
	var perms []models.Permission

	add := func(module, key, desc string) {
		perms = append(perms, models.Permission{Key: key, Module: module, Description: desc})
	}

	tiers := []string{"global", "group", "own", "assigned"}

	for _, action := range []string{"create", "read", "update", "delete", "assign"} {
		for _, tier := range tiers {
			add("ticket", "ticket:"+action+":"+tier, fmt.Sprintf("%s tickets (%s tier)", action, tier))
		}
	}

	for _, action := range []string{"create", "read", "update", "delete"} {
		for _, tier := range []string{"global", "group"} {
			add("endpoint", "endpoint:"+action+":"+tier, fmt.Sprintf("%s endpoints (%s tier)", action, tier))
		}
	}

	for _, action := range []string{"create", "read", "delete"} {
		for _, tier := range tiers {
			add("attachment", "attachment:"+action+":"+tier, fmt.Sprintf("%s attachments (%s tier)", action, tier))
		}
	}

	for _, action := range []string{"create", "read", "update", "delete"} {
		add("user", "user:"+action+":global", fmt.Sprintf("%s users", action))
		add("group", "group:"+action+":global", fmt.Sprintf("%s groups", action))
	}

	// master keys: no tier suffix, unconditional
	add("ticket", "ticket:read", "read any ticket (master)")
	add("endpoint", "endpoint:read", "read any endpoint (master)")
	add("attachment", "attachment:read", "read any attachment (master)")

	return perms
}

// roleCatalog maps the built-in roles to their capability keys.
func roleCatalog() map[string][]string {
	return map[string][]string{
		"administrator": {
			"ticket:create:global", "ticket:read:global", "ticket:update:global",
			"ticket:delete:global", "ticket:assign:global",
			"endpoint:create:global", "endpoint:read:global",
			"endpoint:update:global", "endpoint:delete:global",
			"attachment:create:global", "attachment:read:global", "attachment:delete:global",
			"user:create:global", "user:read:global", "user:update:global", "user:delete:global",
			"group:create:global", "group:read:global", "group:update:global", "group:delete:global",
		},
		"analyst": {
			"ticket:create:group", "ticket:read:group", "ticket:update:group",
			"ticket:assign:group", "ticket:delete:own",
			"endpoint:read:group", "endpoint:create:group", "endpoint:update:group",
			"attachment:create:group", "attachment:read:group",
		},
		"reader": {
			"ticket:read:own", "ticket:read:assigned",
			"endpoint:read:group",
			"attachment:read:assigned",
		},
		"auditor": {
			"ticket:read", "endpoint:read", "attachment:read",
		},
	}
}

// seed populates the permission catalog, built-in roles, the root group and
// the initial admin account. It runs once per seed version.
func seed(db *gorm.DB) error {
	if current, err := setting.Get(db, seedVersionKey); err == nil && string(current.Value) == seedVersion {
		return nil
	}

	perms := permissionCatalog()
	permsByKey := make(map[string]*models.Permission, len(perms))

	for i := range perms {
		if err := db.Where("key = ?", perms[i].Key).FirstOrCreate(&perms[i]).Error; err != nil {
			return fmt.Errorf("seed permission %q: %w", perms[i].Key, err)
		}

		permsByKey[perms[i].Key] = &perms[i]
	}

	for name, keys := range roleCatalog() {
		role := models.Role{Name: name, IsSystem: true}
		if err := db.Where("name = ?", name).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("seed role %q: %w", name, err)
		}

		for _, key := range keys {
			perm, ok := permsByKey[key]
			if !ok {
				return fmt.Errorf("seed role %q references unknown permission %q", name, key)
			}

			mapping := models.RolePermission{RoleID: role.ID, PermissionID: perm.ID}
			if err := db.Where(&mapping).FirstOrCreate(&mapping).Error; err != nil {
				return fmt.Errorf("seed role permission %q/%q: %w", name, key, err)
			}
		}
	}

	rootGroup := models.Group{Name: "Global", Description: "Root group of the hierarchy"}
	if err := db.Where("name = ?", rootGroup.Name).FirstOrCreate(&rootGroup).Error; err != nil {
		return fmt.Errorf("seed root group: %w", err)
	}

	var userCount int64
	if err := db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}

	if userCount == 0 {
		admin := models.User{
			Username:            "admin",
			Email:               "admin@localhost",
			Password:            models.HashPassword("changeme"),
			Active:              true,
			Superuser:           true,
			GroupID:             &rootGroup.ID,
			ForcePasswordChange: true,
		}

		if err := db.Create(&admin).Error; err != nil {
			return fmt.Errorf("seed admin user: %w", err)
		}

		var adminRole models.Role
		if err := db.Where("name = ?", "administrator").First(&adminRole).Error; err != nil {
			return fmt.Errorf("lookup administrator role: %w", err)
		}

		assignment := models.UserRole{UserID: admin.ID, RoleID: adminRole.ID}
		if err := db.Create(&assignment).Error; err != nil {
			return fmt.Errorf("assign administrator role: %w", err)
		}

		log.Warn().Msg("created default admin account with a forced password change")
	}

	if _, err := setting.Set(db, seedVersionKey, []byte(seedVersion)); err != nil {
		return fmt.Errorf("record seed version: %w", err)
	}

	return nil
}
