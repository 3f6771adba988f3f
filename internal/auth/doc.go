// Package auth implements the authorization and session-scoping engine.
//
// The engine decides, for every protected operation, whether a caller holding
// a named capability may act on a specific record. Capabilities are tagged
// (Resource, Action, Scope) triples parsed from "resource:action[:tier]" keys;
// the four visibility tiers are global, group, own and assigned, combined with
// an arbitrarily deep group hierarchy.
//
// # Capability Keys
//
// Keys follow the "resource:action" or "resource:action:tier" convention.
// A key without a tier suffix grants the action unconditionally and acts as
// an escape hatch above all tiers. Keys are parsed by ParseKey and validated
// in bulk by NewRegistry, so malformed seed data fails fast instead of
// silently never matching.
//
// # Scope Resolution
//
// The Resolver evaluates tiers independently and OR-composes the result:
//   - superuser: bypasses every check unconditionally
//   - master key (no tier): grants regardless of group or ownership
//   - global: grants regardless of group or ownership
//   - group: grants when the record's group or owner group is the caller's
//     group or one of its descendants (Hierarchy.Descendants)
//   - assigned: grants when the record is assigned to the caller
//   - own: grants when the caller created the record; for "read" it also
//     covers records assigned to the caller
//
// Privacy is a cross-cutting filter applied before scope resolution: a
// private record is visible only to its creator or assignee, and no global
// or group capability overrides that.
//
// # Staged Authentication
//
// The Gate implements the login state machine. Credential verification leads
// either to a full session token or to a narrow staged-security token
// (password change, 2FA enrollment, 2FA verification); staged tokens are
// accepted only by their dedicated endpoints. Two authorization levels exist
// for routes: LevelAnyStagedOrSession for the staged-flow endpoints and
// LevelSessionOnly for everything else.
//
// Example usage:
//
//	gate := auth.NewGate(db, tokens, sessions, sink, gateCfg)
//	result, err := gate.Login(ctx, auth.LoginInput{Identifier: "jdoe", Password: pw})
//
//	principal, claims, err := gate.Authenticate(ctx, bearer, auth.LevelSessionOnly)
//	ticket, err := ticketGuard.Authorize(ctx, principal, id, auth.ActionRead)
package auth
