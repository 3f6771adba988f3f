// Package main provides the entry point for the Incidenta service.
// Incidenta is a web-based incident and asset management platform built
// around a capability-based authorization engine: staged authentication
// tokens (password change, two-factor enrollment and verification), a
// four-tier scope model (global, group, own, assigned) over an arbitrarily
// deep group hierarchy, and per-resource object-level guards. The service
// exposes a JSON API using the Fiber framework and persists its entities
// with gorm.
package main
