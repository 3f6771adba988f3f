package config

import (
	"time"

	"github.com/incidenta/incidenta/internal/logger"
)

// Auth holds the authentication and authorization engine settings.
type Auth struct {
	// TokenSecret signs all issued tokens. Empty is a fatal misconfiguration.
	TokenSecret string
	// Issuer is the iss claim on issued tokens.
	Issuer string
	// SessionTTL is the lifetime of full session tokens.
	SessionTTL time.Duration
	// StagedTTL is the lifetime of staged-security tokens.
	StagedTTL time.Duration
	// LockoutThreshold is the number of consecutive failed logins that locks
	// an account.
	LockoutThreshold int
	// LockoutWindow is how long a locked account stays unusable.
	LockoutWindow time.Duration
	// TOTPIssuer is the issuer label shown in authenticator apps.
	TOTPIssuer string
	// ReservedUsernames lists service accounts exempt from staged security.
	ReservedUsernames []string
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Auth      Auth
}

// Webserver implement webserver settings.
type Webserver struct {
	CleanPath      bool   // use clean path middleware to allow multi slash requests
	DisableRecover bool   // disable recover middleware
	Domain         string // domain name for the webserver
	Port           int    // listening port for the webserver
	ShutDownTime   int    // wait time for shutdown
	URL            string // base url for the webserver
}
