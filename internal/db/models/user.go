package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// User represents a user account in the system.
// Users authenticate with a local password and optionally a TOTP second
// factor. They receive capabilities through roles and see group-scoped
// records through their group and its descendants.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey"`
	// Active indicates whether the user account is active and can log in.
	Active bool
	// Username is the unique username for login.
	Username string `gorm:"unique;size:100;not null"`
	// Email is the user's email address. Login accepts it as an identifier.
	Email string `gorm:"size:255;not null"`
	// Password is the Argon2id hashed password.
	Password string `gorm:"size:255"`
	// FirstName is the user's first or given name.
	FirstName string `gorm:"size:100"`
	// LastName is the user's last or family name.
	LastName string `gorm:"size:100"`
	// Superuser bypasses all scope checks unconditionally.
	Superuser bool `gorm:"default:false"`
	// PolicyExempt skips the staged-security checks (forced password change,
	// mandatory 2FA) but never the scope checks. Used for service accounts.
	PolicyExempt bool `gorm:"default:false"`
	// GroupID is the user's organizational group. A user without a group has
	// no group-scoped visibility.
	GroupID *uint64
	// Group is the associated group (loaded via foreign key).
	Group *Group `gorm:"foreignKey:GroupID;references:ID;constraint:OnDelete:SET NULL,OnUpdate:CASCADE"`
	// ForcePasswordChange requires the user to set a new password at next login
	// before anything else.
	ForcePasswordChange bool `gorm:"default:false"`
	// TwoFAEnabled indicates the user has a confirmed TOTP secret.
	TwoFAEnabled bool `gorm:"column:twofa_enabled;default:false"`
	// TwoFAEnrollMandatory requires the user to enroll a TOTP secret at next login.
	TwoFAEnrollMandatory bool `gorm:"column:twofa_enroll_mandatory;default:false"`
	// TwoFAResetNextLogin forces a TOTP re-enrollment at next login.
	TwoFAResetNextLogin bool `gorm:"column:twofa_reset_next_login;default:false"`
	// TOTPSecret is the confirmed TOTP shared secret.
	TOTPSecret string `gorm:"column:totp_secret;size:255"`
	// PendingTOTPSecret holds a generated secret until the user confirms it
	// with a valid code.
	PendingTOTPSecret string `gorm:"column:pending_totp_secret;size:255"`
	// RecoveryCodes holds comma-joined one-time recovery codes issued at enrollment.
	RecoveryCodes string `gorm:"size:512"`
	// FailedLoginAttempts counts consecutive failed logins, reset on success.
	FailedLoginAttempts int `gorm:"default:0"`
	// LockedUntil marks the end of a lockout window after too many failures.
	LockedUntil *time.Time
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time
	// DeletedAt is the soft delete timestamp (nil if not deleted, managed by GORM).
	DeletedAt *time.Time
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
// This function should be used when creating or updating user passwords.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the user's stored hashed password.
// It uses constant-time comparison to prevent timing attacks.
// Returns true if the password matches, false otherwise.
func (u *User) VerifyPassword(password string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}

// LockedAt reports whether the account is inside a lockout window at the given time.
func (u *User) LockedAt(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// SecurityPending reports whether any staged-security flag is set.
// Pending flags block full sessions for non-exempt users.
func (u *User) SecurityPending() bool {
	return u.ForcePasswordChange || u.TwoFAEnrollMandatory || u.TwoFAResetNextLogin
}
