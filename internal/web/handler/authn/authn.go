// Package authn implements the login and staged-security endpoints.
package authn

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	engine "github.com/incidenta/incidenta/internal/auth"
	"github.com/incidenta/incidenta/internal/web/handler"
	authmw "github.com/incidenta/incidenta/internal/web/middleware/auth"
)

const (
	// Path is the base path of the authentication routes.
	Path = "/auth"
)

var validate = validator.New() //nolint:gochecknoglobals

// Service is the authentication handler service.
type Service struct {
	handler.Service
	env *handler.Env
}

// Handler is the authentication handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init initializes the authentication handler and registers its routes.
func (s *Service) Init(app *fiber.App, env *handler.Env) error {
	if app == nil || env == nil {
		return errors.New(handler.ErrNilAppEnvFatalLogMsg)
	}

	s.env = env

	staged := authmw.New(env.Gate, engine.LevelAnyStagedOrSession)
	sessionOnly := authmw.New(env.Gate, engine.LevelSessionOnly)

	app.Route(Path, func(router fiber.Router) {
		router.Post("/login", s.Login)
		router.Post("/password", staged, s.ChangePassword)
		router.Post("/2fa/setup", staged, s.Begin2FA)
		router.Post("/2fa/verify", staged, s.Verify2FA)
		router.Post("/logout", staged, s.Logout)
		router.Post("/sessions/revoke-others", sessionOnly, s.RevokeOtherSessions)
		router.Get("/capabilities", sessionOnly, s.Capabilities)
	})

	return nil
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password"   validate:"required"`
}

type stageResponse struct {
	Stage     string   `json:"stage"`
	Pending   []string `json:"pending,omitempty"`
	Token     string   `json:"token"`
	SessionID string   `json:"session_id,omitempty"`
}

func stagePayload(res *engine.LoginResult) stageResponse {
	out := stageResponse{
		Stage:     string(res.Stage),
		Token:     res.Token,
		SessionID: res.SessionID,
	}

	for _, p := range res.Pending {
		out.Pending = append(out.Pending, string(p))
	}

	return out
}

// Login handles credential submission and returns either a session token or
// the first staged-security token.
func (s *Service) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}

	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, err := s.env.Gate.Login(c.UserContext(), engine.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
		IP:         c.IP(),
		UserAgent:  c.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		return authmw.AsHTTPError(err)
	}

	return c.JSON(stagePayload(res))
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8"`
}

// ChangePassword finishes the forced password-change step.
func (s *Service) ChangePassword(c *fiber.Ctx) error {
	var req passwordChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}

	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, err := s.env.Gate.CompletePasswordChange(
		c.UserContext(),
		authmw.Claims(c),
		req.CurrentPassword,
		req.NewPassword,
		c.IP(),
		c.Get(fiber.HeaderUserAgent),
	)
	if err != nil {
		return authmw.AsHTTPError(err)
	}

	return c.JSON(stagePayload(res))
}

type enrollmentResponse struct {
	Secret        string   `json:"secret"`
	URL           string   `json:"url"`
	RecoveryCodes []string `json:"recovery_codes"`
}

// Begin2FA starts TOTP enrollment and returns the pending secret with its
// recovery codes.
func (s *Service) Begin2FA(c *fiber.Ctx) error {
	enrollment, err := s.env.Gate.Begin2FAEnrollment(c.UserContext(), authmw.Claims(c))
	if err != nil {
		return authmw.AsHTTPError(err)
	}

	return c.JSON(enrollmentResponse{
		Secret:        enrollment.Secret,
		URL:           enrollment.URL,
		RecoveryCodes: enrollment.RecoveryCodes,
	})
}

type twoFAVerifyRequest struct {
	Code string `json:"code" validate:"required"`
}

// Verify2FA checks a TOTP code, confirming a pending enrollment or finishing
// an ordinary login.
func (s *Service) Verify2FA(c *fiber.Ctx) error {
	var req twoFAVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}

	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, err := s.env.Gate.Verify2FA(
		c.UserContext(),
		authmw.Claims(c),
		req.Code,
		c.IP(),
		c.Get(fiber.HeaderUserAgent),
	)
	if err != nil {
		return authmw.AsHTTPError(err)
	}

	return c.JSON(stagePayload(res))
}

// Logout deactivates the caller's session.
func (s *Service) Logout(c *fiber.Ctx) error {
	if err := s.env.Gate.Logout(c.UserContext(), authmw.Claims(c)); err != nil {
		return authmw.AsHTTPError(err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type capabilityResponse struct {
	Key         string `json:"key"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Scope       string `json:"scope,omitempty"`
	Module      string `json:"module,omitempty"`
	Description string `json:"description,omitempty"`
}

// Capabilities lists the caller's capabilities with their catalog metadata.
// With ?key= it describes a single catalog entry instead, whether or not the
// caller holds it.
func (s *Service) Capabilities(c *fiber.Ctx) error {
	if key := c.Query("key"); key != "" {
		parsed, ok := s.env.Registry.Capability(key)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "unknown capability")
		}

		meta, _ := s.env.Registry.Lookup(key)

		return c.JSON(capabilityResponse{
			Key:         key,
			Resource:    parsed.Resource,
			Action:      parsed.Action,
			Scope:       string(parsed.Scope),
			Module:      meta.Module,
			Description: meta.Description,
		})
	}

	principal := authmw.Principal(c)

	out := make([]capabilityResponse, 0)

	for _, held := range principal.Capabilities() {
		entry := capabilityResponse{
			Key:      held.Key(),
			Resource: held.Resource,
			Action:   held.Action,
			Scope:    string(held.Scope),
		}

		if meta, ok := s.env.Registry.Lookup(entry.Key); ok {
			entry.Module = meta.Module
			entry.Description = meta.Description
		}

		out = append(out, entry)
	}

	return c.JSON(out)
}

// RevokeOtherSessions deactivates every other session of the caller and
// reports how many were revoked.
func (s *Service) RevokeOtherSessions(c *fiber.Ctx) error {
	count, err := s.env.Gate.LogoutOthers(c.UserContext(), authmw.Claims(c))
	if err != nil {
		return authmw.AsHTTPError(err)
	}

	return c.JSON(fiber.Map{"revoked": count})
}
