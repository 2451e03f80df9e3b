package core

import "errors"

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// LoopbackHost is the only interface the engine binds to.
const LoopbackHost = "127.0.0.1"

// DefaultPort is used when no port has been configured.
const DefaultPort = 8080

// Error definitions
var (
	ErrBind          = errors.New("bind failed")
	ErrInvalidPort   = errors.New("invalid port")
	ErrServerStarted = errors.New("server already started")
)
