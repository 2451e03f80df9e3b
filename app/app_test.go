package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivooifo-droid/defacto-backend/config"
	"github.com/vivooifo-droid/defacto-backend/core"
	"github.com/vivooifo-droid/defacto-backend/core/http"
)

func hello(*http.Request) (*http.Response, error) {
	return http.JSON(200, map[string]string{"hello": "world"})
}

func TestServerInit(t *testing.T) {
	a := New(nil, zerolog.Nop())

	tests := []struct {
		port int
		want int
	}{
		{8080, StatusOK},
		{0, StatusOK},
		{65535, StatusOK},
		{-1, StatusInvalidArgument},
		{65536, StatusInvalidArgument},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, a.ServerInit(tt.port), "port %d", tt.port)
	}

	// failed calls leave the last good port in place
	assert.Equal(t, 65535, a.Engine().Port())
	assert.Equal(t, 65535, a.Config().Server.Port)
}

func TestServerInitKeepsRoutes(t *testing.T) {
	a := New(nil, zerolog.Nop())
	require.Equal(t, StatusOK, a.RegisterRoute("GET", "/keep", http.HandlerFunc(hello)))

	require.Equal(t, StatusOK, a.ServerInit(9000))
	require.Equal(t, StatusOK, a.ServerInit(9000))
	assert.Len(t, a.Engine().Routes(), 1)
}

func TestRegisterRoute(t *testing.T) {
	a := New(nil, zerolog.Nop())
	h := http.HandlerFunc(hello)

	tests := []struct {
		name    string
		method  string
		path    string
		handler http.Handler
		want    int
	}{
		{"get", "GET", "/a", h, StatusOK},
		{"post", "POST", "/a", h, StatusOK},
		{"lowercase method", "get", "/b", h, StatusOK},
		{"put", "PUT", "/a", h, StatusInvalidArgument},
		{"empty method", "", "/a", h, StatusInvalidArgument},
		{"relative path", "GET", "a", h, StatusInvalidArgument},
		{"empty path", "GET", "", h, StatusInvalidArgument},
		{"nil handler", "GET", "/c", nil, StatusInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.RegisterRoute(tt.method, tt.path, tt.handler))
		})
	}
	assert.Len(t, a.Engine().Routes(), 3)
}

func TestServerStartBindFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	a := New(nil, zerolog.Nop())
	require.Equal(t, StatusOK, a.ServerInit(busy.Addr().(*net.TCPAddr).Port))

	done := make(chan int, 1)
	go func() { done <- a.ServerStart() }()

	select {
	case status := <-done:
		assert.Equal(t, StatusBindFailed, status)
	case <-time.After(5 * time.Second):
		t.Fatal("ServerStart did not fail on a busy port")
	}
}

func TestRunServesRegisteredRoutes(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = 0
	a := New(cfg, zerolog.Nop())
	require.Equal(t, StatusOK, a.RegisterRoute("GET", "/hello", http.HandlerFunc(hello)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	var addr net.Addr
	require.Eventually(t, func() bool {
		addr = a.Engine().Addr()
		return addr != nil
	}, 5*time.Second, 10*time.Millisecond)

	resp, err := nethttp.Get(fmt.Sprintf("http://%s/hello", addr))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.JSONEq(t, `{"hello":"world"}`, string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusOK, statusOf(nil))
	assert.Equal(t, StatusBindFailed, statusOf(fmt.Errorf("wrap: %w", core.ErrBind)))
	assert.Equal(t, StatusBindFailed, statusOf(core.ErrServerStarted))
	assert.Equal(t, StatusServeFailed, statusOf(errors.New("accept: use of closed network connection")))
}

func TestNewLogsRejectedPort(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.Server.Port = 70000

	a := New(cfg, zerolog.New(&buf))

	assert.Equal(t, core.DefaultPort, a.Engine().Port())
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "configured port rejected")
}

func TestNewAppliesServerConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = 9191
	cfg.Server.Metrics = false

	a := New(cfg, zerolog.Nop())
	assert.Equal(t, 9191, a.Engine().Port())

	a.Engine().Monitor().Record("GET /", 200, 0)
	assert.Empty(t, a.Engine().Monitor().Snapshot())
}
