package auth

import "errors"

var (
	// ErrInvalidCredentials is returned for an unknown identifier, a wrong
	// password, or a staged-security token used where a session is required.
	// The cases are deliberately indistinguishable to the caller to avoid
	// user enumeration; the audit sink records the precise reason.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked is returned while the account is inside a lockout
	// window after too many failed login attempts.
	ErrAccountLocked = errors.New("account locked")

	// ErrInactiveAccount is returned when the account is disabled.
	ErrInactiveAccount = errors.New("account is inactive")

	// ErrInsufficientScope is returned when a token lacks a required scope
	// class or business capability.
	ErrInsufficientScope = errors.New("insufficient scope")

	// ErrStagedSecurityRequired is returned when full access is requested
	// while a pending password-change or 2FA flag is set on a non-exempt
	// principal.
	ErrStagedSecurityRequired = errors.New("pending security steps must be completed first")

	// ErrPermissionDenied is returned when no scope tier grants access to a
	// loaded record.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when a resource is absent. Guards return the
	// same error for records the principal has zero visibility into.
	ErrNotFound = errors.New("not found")

	// ErrMalformedCapability is returned when a capability key does not parse.
	ErrMalformedCapability = errors.New("malformed capability key")

	// ErrGroupCycle is returned when hierarchy traversal revisits a group.
	// The stored forest is assumed acyclic; a cycle is a data-integrity
	// fault surfaced at resolution time.
	ErrGroupCycle = errors.New("group hierarchy contains a cycle")

	// ErrInvalidTwoFACode is returned when a submitted TOTP code does not
	// verify against the user's secret.
	ErrInvalidTwoFACode = errors.New("invalid two-factor code")
)
