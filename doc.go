/*
Package defactobackend is the HTTP routing and dispatch core of the Defacto backend.

It accepts TCP connections on the loopback interface, reads HTTP/1.1 requests, looks up a
handler by method and exact path, and writes a JSON response. Every response carries
Content-Type: application/json.

Features

  - Exact-match route table for GET and POST, safe to modify while serving
  - Built-in responses: default 200 for GET /, 404 for unknown paths, 405 for other methods
  - One goroutine per connection, so a slow handler never blocks other clients
  - HTTP keep-alive, chunked request bodies and Expect: 100-continue
  - Request IDs (X-Request-ID), optional gzip, optional connection cap
  - Per-route latency metrics and engine statistics
  - Structured logging with zerolog, configuration with viper

Quick Start

The hosting program makes three calls: initialize, register routes, start.

	package main

	import (
	    "os"

	    "github.com/rs/zerolog"

	    "github.com/vivooifo-droid/defacto-backend/app"
	    "github.com/vivooifo-droid/defacto-backend/core/http"
	)

	func main() {
	    a := app.New(nil, zerolog.Nop())
	    a.ServerInit(8080)

	    a.RegisterRoute("GET", "/hello", http.HandlerFunc(func(req *http.Request) (*http.Response, error) {
	        return http.JSON(200, map[string]string{"hello": "world"})
	    }))

	    os.Exit(a.ServerStart())
	}

Routing rules

  - GET with a registered path invokes its handler
  - GET / without a registered handler returns {"message":"Hello from Defacto Backend!","status":"ok"}
  - any other unmatched GET or POST returns {"error":"Not Found","status":404}
  - any other method returns {"error":"Method Not Allowed","status":405}

A handler error or panic becomes {"error":"Internal Server Error","status":500}.

Modules

  - app: lifecycle (ServerInit, RegisterRoute, ServerStart) and status codes
  - config: configuration with viper (file, DEFACTO_* environment, flags)
  - logging: zerolog setup with optional rotating log file
  - core: connection acceptor and request dispatcher
  - core/http: requests, handlers and JSON responses
  - core/router: the route table
  - core/pools: response buffer pool
  - core/observability: per-route metrics
  - cmd/defacto-backend: the command line server
*/
package defactobackend
