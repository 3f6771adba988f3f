// Package web wires the fiber application: middleware, handlers and the
// authorization engine behind them.
package web

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/incidenta/incidenta/internal/audit"
	"github.com/incidenta/incidenta/internal/auth"
	"github.com/incidenta/incidenta/internal/auth/guard"
	"github.com/incidenta/incidenta/internal/auth/session"
	"github.com/incidenta/incidenta/internal/auth/token"
	"github.com/incidenta/incidenta/internal/config"
	fiberlogger "github.com/incidenta/incidenta/internal/logger/adapter/fiber"
	"github.com/incidenta/incidenta/internal/web/handler"
	"github.com/incidenta/incidenta/internal/web/handler/attachment"
	"github.com/incidenta/incidenta/internal/web/handler/authn"
	"github.com/incidenta/incidenta/internal/web/handler/endpoint"
	"github.com/incidenta/incidenta/internal/web/handler/ticket"
)

const checkAlivePath = "/checkalive"

// Service represents the web service.
type Service struct {
	App        *fiber.App
	cfg        *config.Config
	alive      atomic.Bool
	db         *gorm.DB
	gate       *auth.Gate
	dispatcher *audit.Dispatcher
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	s.alive.Store(true)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if s.cfg.Webserver.ShutDownTime > 0 {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		if err := s.App.Shutdown(); err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown

	s.dispatcher.Close()
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, db *gorm.DB) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	tokens, err := token.NewService(cfg.Auth.TokenSecret, cfg.Auth.Issuer)
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}

	// the permission table must parse, or the service refuses to start
	registry, err := auth.LoadRegistry(db)
	if err != nil {
		return nil, fmt.Errorf("capability registry: %w", err)
	}

	log.Info().Int("capabilities", registry.Len()).Msg("capability registry loaded")

	dispatcher := audit.NewDispatcher(audit.ZerologSink{}, 256) //nolint:mnd

	sessions := session.NewStore(db)
	hierarchy := auth.NewHierarchy(auth.NewGormGroupStore(db))
	resolver := auth.NewResolver(hierarchy)

	gate := auth.NewGate(db, tokens, sessions, dispatcher, auth.GateConfig{
		SessionTTL:        cfg.Auth.SessionTTL,
		StagedTTL:         cfg.Auth.StagedTTL,
		LockoutThreshold:  cfg.Auth.LockoutThreshold,
		LockoutWindow:     cfg.Auth.LockoutWindow,
		TOTPIssuer:        cfg.Auth.TOTPIssuer,
		ReservedUsernames: cfg.Auth.ReservedUsernames,
	})

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
		},
	)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: checkAlivePath,
	}))

	service := &Service{
		cfg:        cfg,
		App:        app,
		db:         db,
		gate:       gate,
		dispatcher: dispatcher,
	}

	app.Get(checkAlivePath, func(c *fiber.Ctx) error {
		if !service.alive.Load() {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}

		return c.SendStatus(fiber.StatusOK)
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	env := &handler.Env{
		Cfg:         cfg,
		DB:          db,
		Gate:        gate,
		Registry:    registry,
		Tickets:     guard.NewTicketGuard(db, resolver, dispatcher),
		Endpoints:   guard.NewEndpointGuard(db, resolver, dispatcher),
		Attachments: guard.NewAttachmentGuard(db, resolver, dispatcher),
	}

	// init handlers (they register their own routes)
	if err := authn.Handler.Init(app, env); err != nil {
		return nil, fmt.Errorf("authn handler: %w", err)
	}

	if err := ticket.Handler.Init(app, env); err != nil {
		return nil, fmt.Errorf("ticket handler: %w", err)
	}

	if err := endpoint.Handler.Init(app, env); err != nil {
		return nil, fmt.Errorf("endpoint handler: %w", err)
	}

	if err := attachment.Handler.Init(app, env); err != nil {
		return nil, fmt.Errorf("attachment handler: %w", err)
	}

	return service, nil
}
