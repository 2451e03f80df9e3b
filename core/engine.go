package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/netutil"
	"golang.org/x/time/rate"

	"github.com/vivooifo-droid/defacto-backend/core/http"
	"github.com/vivooifo-droid/defacto-backend/core/observability"
	"github.com/vivooifo-droid/defacto-backend/core/router"
)

// Options tunes an Engine. Zero durations disable the matching deadline.
type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Requests with a larger body get a 413. <= 0 disables the limit.
	MaxBodyBytes int64

	// Request lines plus headers larger than this get a 431. <= 0 disables
	// the limit.
	MaxHeaderBytes int64

	// Caps concurrently served connections. 0 means unlimited.
	MaxConnections int

	// Gzip JSON bodies for clients that accept it
	Compress bool

	// Stops per-route metrics recording
	DisableMetrics bool

	// nil discards all engine logs
	Logger *zerolog.Logger
}

// DefaultOptions returns the options used by NewEngine(nil).
func DefaultOptions() Options {
	return Options{
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxBodyBytes:   1 << 20,
		MaxHeaderBytes: 1 << 20,
	}
}

// Engine accepts connections on the loopback interface and dispatches
// requests through its route table. Each connection is served on its own
// goroutine.
type Engine struct {
	table   *router.Table
	monitor *observability.Monitor
	logger  zerolog.Logger
	opts    Options

	// paces the accept loop after accept failures
	acceptLimiter *rate.Limiter

	mu       sync.Mutex
	port     int
	listener net.Listener
	conns    map[net.Conn]struct{}

	accepted     atomic.Uint64
	active       atomic.Int64
	acceptErrors atomic.Uint64
}

// NewEngine creates a new engine instance bound to DefaultPort until Init
// says otherwise. A nil opts means DefaultOptions.
func NewEngine(opts *Options) *Engine {
	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}

	logger := zerolog.Nop()
	if o.Logger != nil {
		logger = *o.Logger
	}

	monitor := observability.NewMonitor()
	monitor.SetEnabled(!o.DisableMetrics)

	return &Engine{
		table:         router.NewTable(),
		monitor:       monitor,
		logger:        logger,
		opts:          o,
		acceptLimiter: rate.NewLimiter(rate.Every(50*time.Millisecond), 10),
		port:          DefaultPort,
		conns:         make(map[net.Conn]struct{}),
	}
}

// Init records the port used by the next Listen and makes sure the route
// table exists. It never binds and never drops registered routes. Port 0
// asks the OS for a free port.
func (e *Engine) Init(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}

	e.table.Init()

	e.mu.Lock()
	e.port = port
	e.mu.Unlock()
	return nil
}

// Port returns the configured port.
func (e *Engine) Port() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.port
}

// Handle registers h for (method, path). It may be called at any time,
// including while the engine is serving.
func (e *Engine) Handle(method, path string, h http.Handler) error {
	return e.table.Register(method, path, h)
}

// GET registers a GET route
func (e *Engine) GET(path string, h http.HandlerFunc) error {
	return e.handleFunc(router.MethodGet, path, h)
}

// POST registers a POST route
func (e *Engine) POST(path string, h http.HandlerFunc) error {
	return e.handleFunc(router.MethodPost, path, h)
}

func (e *Engine) handleFunc(method, path string, h http.HandlerFunc) error {
	if h == nil {
		return e.Handle(method, path, nil)
	}
	return e.Handle(method, path, h)
}

// Routes returns the registered routes.
func (e *Engine) Routes() []router.Route {
	return e.table.Routes()
}

// Monitor returns the per-route metrics recorder.
func (e *Engine) Monitor() *observability.Monitor {
	return e.monitor
}

// Addr returns the bound address, or nil when the engine is not listening.
func (e *Engine) Addr() net.Addr {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener == nil {
		return nil
	}
	return e.listener.Addr()
}

// Listen binds 127.0.0.1 on the configured port. Failures wrap ErrBind and
// are never retried.
func (e *Engine) Listen(ctx context.Context) (net.Listener, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.listener != nil {
		return nil, ErrServerStarted
	}

	e.logger.Info().Int("port", e.port).Msg("🚀 Starting Defacto backend server")

	addr := net.JoinHostPort(LoopbackHost, strconv.Itoa(e.port))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBind, addr, err)
	}

	ln = &tunedListener{Listener: ln, keepAlive: keepAliveIdle}
	if e.opts.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, e.opts.MaxConnections)
	}
	e.listener = ln

	e.logger.Info().
		Str("addr", ln.Addr().String()).
		Int("routes", e.table.Len()).
		Msgf("✅ Server listening on http://%s", ln.Addr())
	return ln, nil
}

// Serve accepts connections on ln until ctx is cancelled or ln fails.
// Cancelling ctx closes ln and every open connection; in-flight requests are
// not drained. A cancelled context yields a nil error.
func (e *Engine) Serve(ctx context.Context, ln net.Listener) error {
	e.mu.Lock()
	if e.listener == nil {
		e.listener = ln
	}
	e.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer e.shutdown(ln)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("accept: %w", err)
			}

			e.acceptErrors.Add(1)
			e.logger.Warn().Err(err).Msg("accept failed")
			if werr := e.acceptLimiter.Wait(ctx); werr != nil {
				return nil
			}
			continue
		}

		e.accepted.Add(1)
		if !e.track(conn) {
			conn.Close()
			return nil
		}
		go e.serveConn(conn)
	}
}

// Run binds and serves until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ln, err := e.Listen(ctx)
	if err != nil {
		return err
	}
	return e.Serve(ctx, ln)
}

// track registers conn so shutdown can close it. It reports false once the
// engine has stopped serving.
func (e *Engine) track(conn net.Conn) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener == nil {
		return false
	}
	e.conns[conn] = struct{}{}
	return true
}

func (e *Engine) untrack(conn net.Conn) {
	e.mu.Lock()
	delete(e.conns, conn)
	e.mu.Unlock()
}

func (e *Engine) shutdown(ln net.Listener) {
	ln.Close()

	e.mu.Lock()
	e.listener = nil
	for conn := range e.conns {
		conn.Close()
		delete(e.conns, conn)
	}
	e.mu.Unlock()

	e.logger.Info().Msg("server stopped")
}
