package app

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vivooifo-droid/defacto-backend/config"
	"github.com/vivooifo-droid/defacto-backend/core"
	"github.com/vivooifo-droid/defacto-backend/core/http"
)

// Status codes returned by the host-facing calls
const (
	StatusOK              = 0
	StatusInvalidArgument = 1
	StatusBindFailed      = 2
	StatusServeFailed     = 3
)

// App owns the configuration and the engine, and exposes the
// init / register / start lifecycle to the hosting program.
type App struct {
	cfg    *config.Config
	engine *core.Engine
	logger zerolog.Logger
}

// New creates an application whose engine is configured from cfg.Server.
// A nil cfg means config.Default().
func New(cfg *config.Config, logger zerolog.Logger) *App {
	if cfg == nil {
		cfg = config.Default()
	}

	engineLogger := logger.With().Str("component", "engine").Logger()
	engine := core.NewEngine(&core.Options{
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		MaxConnections: cfg.Server.MaxConnections,
		Compress:       cfg.Server.Compress,
		DisableMetrics: !cfg.Server.Metrics,
		Logger:         &engineLogger,
	})

	return NewWithEngine(cfg, engine, logger)
}

// NewWithEngine creates an application around a pre-configured engine.
func NewWithEngine(cfg *config.Config, engine *core.Engine, logger zerolog.Logger) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	a := &App{
		cfg:    cfg,
		engine: engine,
		logger: logger.With().Str("component", "app").Logger(),
	}
	if err := engine.Init(cfg.Server.Port); err != nil {
		a.logger.Error().
			Err(err).
			Int("port", engine.Port()).
			Msg("configured port rejected, keeping the engine's port")
	}
	return a
}

// Engine returns the underlying engine for route registration
func (a *App) Engine() *core.Engine {
	return a.engine
}

// Config returns the configuration the app was built with.
func (a *App) Config() *config.Config {
	return a.cfg
}

// ServerInit records port for the next start and makes sure the route table
// exists. It does not bind and may be called more than once.
func (a *App) ServerInit(port int) int {
	if err := a.engine.Init(port); err != nil {
		a.logger.Error().Err(err).Int("port", port).Msg("server init failed")
		return StatusInvalidArgument
	}
	a.cfg.Server.Port = port
	return StatusOK
}

// RegisterRoute adds or replaces the handler for (method, path). Method
// names are case-insensitive here; only GET and POST are accepted.
func (a *App) RegisterRoute(method, path string, h http.Handler) int {
	method = strings.ToUpper(strings.TrimSpace(method))
	if err := a.engine.Handle(method, path, h); err != nil {
		a.logger.Error().Err(err).Str("method", method).Str("path", path).Msg("route registration failed")
		return StatusInvalidArgument
	}
	a.logger.Debug().Str("method", method).Str("path", path).Msg("route registered")
	return StatusOK
}

// ServerStart binds and serves until the process exits. It only returns on
// failure.
func (a *App) ServerStart() int {
	return statusOf(a.Run(context.Background()))
}

// Run binds and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ln, err := a.Listen(ctx)
	if err != nil {
		return err
	}
	return a.Serve(ctx, ln)
}

// Listen binds the configured port on the loopback interface.
func (a *App) Listen(ctx context.Context) (net.Listener, error) {
	a.logger.Info().
		Str("env", a.cfg.Env).
		Int("routes", len(a.engine.Routes())).
		Msg("starting")

	ln, err := a.engine.Listen(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("bind failed")
		return nil, err
	}
	return ln, nil
}

// Serve accepts connections on ln until ctx is cancelled.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	if err := a.engine.Serve(ctx, ln); err != nil {
		a.logger.Error().Err(err).Msg("server failed")
		return err
	}
	return nil
}

func statusOf(err error) int {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, core.ErrBind), errors.Is(err, core.ErrServerStarted):
		return StatusBindFailed
	default:
		return StatusServeFailed
	}
}
