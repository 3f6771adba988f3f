// Package attachment implements the ticket attachment endpoints. Access is
// decided against the parent ticket; attachments carry no scope fields.
package attachment

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	engine "github.com/incidenta/incidenta/internal/auth"
	"github.com/incidenta/incidenta/internal/db/models"
	"github.com/incidenta/incidenta/internal/web/handler"
	authmw "github.com/incidenta/incidenta/internal/web/middleware/auth"
)

const (
	// Path is the base path of the attachment routes.
	Path = "/attachments"
)

var validate = validator.New() //nolint:gochecknoglobals

// Service is the attachment handler service.
type Service struct {
	handler.Service
	env *handler.Env
}

// Handler is the attachment handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init initializes the attachment handler and registers its routes.
func (s *Service) Init(app *fiber.App, env *handler.Env) error {
	if app == nil || env == nil {
		return errors.New(handler.ErrNilAppEnvFatalLogMsg)
	}

	s.env = env

	sessionOnly := authmw.New(env.Gate, engine.LevelSessionOnly)

	app.Route(Path, func(router fiber.Router) {
		router.Get("/:id", sessionOnly, s.Get)
		router.Delete("/:id", sessionOnly, s.Delete)
	})

	// upload lives under the parent ticket
	app.Post("/tickets/:id/attachments", sessionOnly, s.Create)

	return nil
}

// Get returns attachment metadata after the parent-ticket check.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	attachment, err := s.env.Attachments.Authorize(c.UserContext(), authmw.Principal(c), id, engine.ActionRead)
	if err != nil {
		return authmw.AsHTTPError(err)
	}

	return c.JSON(attachment)
}

type createRequest struct {
	FileName    string `json:"file_name" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"max=100"`
	Size        int64  `json:"size" validate:"gte=0"`
}

// Create records an attachment on a ticket the caller may attach to.
func (s *Service) Create(c *fiber.Ctx) error {
	ticketID, err := pathID(c)
	if err != nil {
		return err
	}

	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}

	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	principal := authmw.Principal(c)

	parent, err := s.env.Attachments.AuthorizeCreate(c.UserContext(), principal, ticketID)
	if err != nil {
		return authmw.AsHTTPError(err)
	}

	attachment := models.Attachment{
		TicketID:     parent.ID,
		FileName:     req.FileName,
		ContentType:  req.ContentType,
		Size:         req.Size,
		UploadedByID: principal.User.ID,
	}

	if err := s.env.DB.WithContext(c.UserContext()).Create(&attachment).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(attachment)
}

// Delete removes an attachment after the parent-ticket check.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	attachment, err := s.env.Attachments.Authorize(c.UserContext(), authmw.Principal(c), id, engine.ActionDelete)
	if err != nil {
		return authmw.AsHTTPError(err)
	}

	if err := s.env.DB.WithContext(c.UserContext()).Delete(attachment).Error; err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func pathID(c *fiber.Ctx) (uint64, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	return id, nil
}
