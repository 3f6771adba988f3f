// Package daemon boots the service: logging, database, migrations, seed
// data and the web service.
package daemon

import (
	"fmt"

	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/incidenta/incidenta/internal/config"
	"github.com/incidenta/incidenta/internal/db/dsn"
	"github.com/incidenta/incidenta/internal/db/models"
	"github.com/incidenta/incidenta/internal/logger"
	"github.com/incidenta/incidenta/internal/web"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
}

// Start runs the web service and blocks until it stops.
func (d *Daemon) Start() error {
	go d.webService.WaitShutdown()

	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if err := logger.Init(cfg.Log); err != nil {
		return nil, fmt.Errorf("logger init: %w", err)
	}

	var dialector gorm.Dialector

	switch cfg.DB.GormEngine {
	case "postgres":
		dialector = gormpostgres.Open(dsn.Create(cfg))
	default:
		dialector = gormmysql.Open(dsn.Create(cfg))
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err = db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Role{},
		&models.Permission{},
		&models.RolePermission{},
		&models.UserRole{},
		&models.Session{},
		&models.Ticket{},
		&models.Endpoint{},
		&models.Attachment{},
		&models.Setting{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := seed(db); err != nil {
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}

	webService, err := web.New(cfg, db)
	if err != nil {
		return nil, fmt.Errorf("web service: %w", err)
	}

	log.Info().Str("engine", cfg.DB.GormEngine).Msg("daemon initialized")

	return &Daemon{
		cfg:        cfg,
		webService: webService,
	}, nil
}
