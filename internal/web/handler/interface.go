package handler

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/incidenta/incidenta/internal/auth"
	"github.com/incidenta/incidenta/internal/auth/guard"
	"github.com/incidenta/incidenta/internal/config"
)

// Env bundles the shared dependencies the web handlers need.
type Env struct {
	Cfg         *config.Config
	DB          *gorm.DB
	Gate        *auth.Gate
	Registry    *auth.Registry
	Tickets     *guard.TicketGuard
	Endpoints   *guard.EndpointGuard
	Attachments *guard.AttachmentGuard
}

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, env *Env) error
}
