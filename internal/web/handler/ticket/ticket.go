// Package ticket implements the incident ticket endpoints. Every route is
// session-only; object access goes through the ticket guard and list queries
// through its filter.
package ticket

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
	// Path is the base path of the ticket routes.
	Path = "/tickets"
)

var validate = validator.New() //nolint:gochecknoglobals

// Service is the ticket handler service.
type Service struct {
	handler.Service
	env *handler.Env
}

// Handler is the ticket handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init initializes the ticket handler and registers its routes.
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
		router.Post("/:id/assign", sessionOnly, s.Assign)
		router.Delete("/:id", sessionOnly, s.Delete)
	})

	return nil
}

// List returns the tickets visible to the caller for the read action.
func (s *Service) List(c *fiber.Ctx) error {
	principal := authmw.Principal(c)

	filter, err := s.env.Tickets.Filter(c.UserContext(), principal, engine.ActionRead)
	if err != nil {
		return authmw.AsHTTPError(err)
	}

	var tickets []models.Ticket
	if err := filter(s.env.DB.WithContext(c.UserContext())).Find(&tickets).Error; err != nil {
		return err
	}

	return c.JSON(tickets)
}

// Get returns a single ticket after the object-level check.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ticket, err := s.env.Tickets.Authorize(c.UserContext(), authmw.Principal(c), id, engine.ActionRead)
	if err != nil {
		return authmw.AsHTTPError(err)
	}

	return c.JSON(ticket)
}

type createRequest struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description string  `json:"description"`
	Severity    string  `json:"severity" validate:"max=20"`
	GroupID     *uint64 `json:"group_id"`
	Private     bool    `json:"private"`
}

// Create inserts a new ticket. The creator's group becomes the owner group
// and the acting group unless the request names one explicitly.
func (s *Service) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}

	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	principal := authmw.Principal(c)

	groupID := req.GroupID
	if groupID == nil {
		groupID = principal.User.GroupID
	}

	ticket := models.Ticket{
		Title:        req.Title,
		Description:  req.Description,
		Status:       models.TicketStatusOpen,
		Severity:     req.Severity,
		GroupID:      groupID,
		OwnerGroupID: principal.User.GroupID,
		CreatedByID:  principal.User.ID,
		Private:      req.Private,
	}

	if err := s.env.Tickets.AuthorizeCreate(c.UserContext(), principal, &ticket); err != nil {
		return authmw.AsHTTPError(err)
	}

	if err := s.env.DB.WithContext(c.UserContext()).Create(&ticket).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(ticket)
}

type updateRequest struct {
	Title       *string              `json:"title" validate:"omitempty,max=255"`
	Description *string              `json:"description"`
	Severity    *string              `json:"severity" validate:"omitempty,max=20"`
	Status      *models.TicketStatus `json:"status" validate:"omitempty,oneof=open in_progress closed"`
	GroupID     *uint64              `json:"group_id"`
	Private     *bool                `json:"private"`
}

// Update patches a ticket's mutable fields after the object-level check.
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

	ticket, err := s.env.Tickets.Authorize(c.UserContext(), authmw.Principal(c), id, engine.ActionUpdate)
	if err != nil {
		return authmw.AsHTTPError(err)
	}

	if req.Title != nil {
		ticket.Title = *req.Title
	}

	if req.Description != nil {
		ticket.Description = *req.Description
	}

	if req.Severity != nil {
		ticket.Severity = *req.Severity
	}

	if req.Status != nil {
		ticket.Status = *req.Status
	}

	if req.GroupID != nil {
		ticket.GroupID = req.GroupID
	}

	if req.Private != nil {
		ticket.Private = *req.Private
	}

	if err := s.env.DB.WithContext(c.UserContext()).Save(ticket).Error; err != nil {
		return err
	}

	return c.JSON(ticket)
}

type assignRequest struct {
	AssignedToID *uint64 `json:"assigned_to_id"`
}

// Assign sets or clears the assignee. Assignment is its own action; the
// update capability does not imply it.
func (s *Service) Assign(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req assignRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}

	ticket, err := s.env.Tickets.Authorize(c.UserContext(), authmw.Principal(c), id, engine.ActionAssign)
	if err != nil {
		return authmw.AsHTTPError(err)
	}

	ticket.AssignedToID = req.AssignedToID

	if err := s.env.DB.WithContext(c.UserContext()).Save(ticket).Error; err != nil {
		return err
	}

	return c.JSON(ticket)
}

// Delete removes a ticket after the object-level check.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ticket, err := s.env.Tickets.Authorize(c.UserContext(), authmw.Principal(c), id, engine.ActionDelete)
	if err != nil {
		return authmw.AsHTTPError(err)
	}

	if err := s.env.DB.WithContext(c.UserContext()).Delete(ticket).Error; err != nil {
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
