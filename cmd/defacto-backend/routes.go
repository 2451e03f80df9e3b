package main

import (
	"encoding/json"
	"fmt"
	nethttp "net/http"

	"github.com/vivooifo-droid/defacto-backend/app"
	"github.com/vivooifo-droid/defacto-backend/core"
	"github.com/vivooifo-droid/defacto-backend/core/http"
	"github.com/vivooifo-droid/defacto-backend/version"
)

// registerRoutes installs the routes served by the binary. GET / is left to
// the engine's default response.
func registerRoutes(a *app.App) error {
	routes := []struct {
		method string
		path   string
		h      http.Handler
	}{
		{"GET", "/health", http.HandlerFunc(health)},
		{"GET", "/version", http.HandlerFunc(versionInfo)},
		{"GET", "/stats", statsHandler{engine: a.Engine()}},
		{"POST", "/echo", http.HandlerFunc(echo)},
	}

	for _, r := range routes {
		if status := a.RegisterRoute(r.method, r.path, r.h); status != app.StatusOK {
			return fmt.Errorf("register %s %s: status %d", r.method, r.path, status)
		}
	}
	return nil
}

var healthResponse = http.NewResponse(nethttp.StatusOK, []byte(`{"status":"ok"}`))

func health(*http.Request) (*http.Response, error) {
	return healthResponse, nil
}

func versionInfo(*http.Request) (*http.Response, error) {
	return http.JSON(nethttp.StatusOK, map[string]string{
		"name":    version.Name,
		"version": version.Version,
	})
}

// echo wraps the JSON request body as {"echo": <body>}.
func echo(req *http.Request) (*http.Response, error) {
	if !json.Valid(req.Body) {
		return http.Error(nethttp.StatusBadRequest), nil
	}
	return http.JSON(nethttp.StatusOK, map[string]json.RawMessage{"echo": req.Body})
}

type statsHandler struct {
	engine *core.Engine
}

func (h statsHandler) Handle(*http.Request) (*http.Response, error) {
	return http.JSON(nethttp.StatusOK, h.engine.Stats())
}
