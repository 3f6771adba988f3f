// Package endpoint implements the asset inventory endpoints. Assets are
// visible through group membership only.
package endpoint

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
	// Path is the base path of the asset routes.
	Path = "/endpoints"
)

var validate = validator.New() //nolint:gochecknoglobals

// Service is the asset handler service.
type Service struct {
	handler.Service
	env *handler.Env
}

// Handler is the asset handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init initializes the asset handler and registers its routes.
func (s *Service) Init(app *fiber.App, env *handler.Env) error {
	if app == nil || env == nil {
		return errors.New(handler.ErrNilAppEnvFatalLogMsg)
	}

	s.env = env

	sessionOnly := authmw.New(env.Gate, engine.LevelSessionOnly)

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, sessionOnly, s.List)
		router.Post(handler.RouterRootPath, sessionOnly, s.Create)
		router.Get("/:id", sessionOnly, s.Get)
		router.Patch("/:id", sessionOnly, s.Update)
		router.Delete("/:id", sessionOnly, s.Delete)
	})

	return nil
}

// List returns the assets visible to the caller for the read action.
func (s *Service) List(c *fiber.Ctx) error {
	principal := authmw.Principal(c)

	filter, err := s.env.Endpoints.Filter(c.UserContext(), principal, engine.ActionRead)
	if err != nil {
		return authmw.AsHTTPError(err)
	}

	var endpoints []models.Endpoint
	if err := filter(s.env.DB.WithContext(c.UserContext())).Find(&endpoints).Error; err != nil {
		return err
	}

	return c.JSON(endpoints)
}

// Get returns a single asset after the object-level check.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	endpoint, err := s.env.Endpoints.Authorize(c.UserContext(), authmw.Principal(c), id, engine.ActionRead)
	if err != nil {
		return authmw.AsHTTPError(err)
	}

	return c.JSON(endpoint)
}

type createRequest struct {
	Hostname string  `json:"hostname" validate:"required,max=255"`
	Address  string  `json:"address" validate:"omitempty,ip"`
	OS       string  `json:"os" validate:"max=100"`
	GroupID  *uint64 `json:"group_id"`
}

// Create registers a new asset in the caller's group unless the request
// names another one.
func (s *Service) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}

	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	principal := authmw.Principal(c)

	if _, err := s.env.Endpoints.Authorize(c.UserContext(), principal, 0, engine.ActionCreate); err != nil {
		return authmw.AsHTTPError(err)
	}

	groupID := req.GroupID
	if groupID == nil {
		groupID = principal.User.GroupID
	}

	endpoint := models.Endpoint{
		Hostname:    req.Hostname,
		Address:     req.Address,
		OS:          req.OS,
		GroupID:     groupID,
		CreatedByID: principal.User.ID,
	}

	if err := s.env.DB.WithContext(c.UserContext()).Create(&endpoint).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(endpoint)
}

type updateRequest struct {
	Hostname *string `json:"hostname" validate:"omitempty,max=255"`
	Address  *string `json:"address" validate:"omitempty,ip"`
	OS       *string `json:"os" validate:"omitempty,max=100"`
	GroupID  *uint64 `json:"group_id"`
}

// Update patches an asset's mutable fields after the object-level check.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}

	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	endpoint, err := s.env.Endpoints.Authorize(c.UserContext(), authmw.Principal(c), id, engine.ActionUpdate)
	if err != nil {
		return authmw.AsHTTPError(err)
	}

	if req.Hostname != nil {
		endpoint.Hostname = *req.Hostname
	}

	if req.Address != nil {
		endpoint.Address = *req.Address
	}

	if req.OS != nil {
		endpoint.OS = *req.OS
	}

	if req.GroupID != nil {
		endpoint.GroupID = req.GroupID
	}

	if err := s.env.DB.WithContext(c.UserContext()).Save(endpoint).Error; err != nil {
		return err
	}

	return c.JSON(endpoint)
}

// Delete removes an asset after the object-level check.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	endpoint, err := s.env.Endpoints.Authorize(c.UserContext(), authmw.Principal(c), id, engine.ActionDelete)
	if err != nil {
		return authmw.AsHTTPError(err)
	}

	if err := s.env.DB.WithContext(c.UserContext()).Delete(endpoint).Error; err != nil {
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
