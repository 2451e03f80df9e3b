package core

import (
	"fmt"
	"runtime/debug"

	"github.com/vivooifo-droid/defacto-backend/core/http"
	"github.com/vivooifo-droid/defacto-backend/core/router"
)

// Metric labels for requests that matched no route or could not be read
const (
	labelNotFound         = "not_found"
	labelMethodNotAllowed = "method_not_allowed"
	labelRejected         = "rejected"
)

// dispatch resolves req against the route table and returns the response
// together with the metric label of the route that produced it.
//
//	GET   registered path -> handler
//	GET   /               -> default response
//	GET   anything else   -> 404
//	POST  registered path -> handler, otherwise 404
//	other                 -> 405, the table is not consulted
func (e *Engine) dispatch(req *http.Request) (*http.Response, string) {
	switch req.Method {
	case router.MethodGet:
		if h, ok := e.table.Lookup(router.MethodGet, req.Path); ok {
			return e.invoke(h, req), router.MethodGet + " " + req.Path
		}
		if req.Path == "/" {
			return http.Default(), "GET /"
		}
		return http.NotFound(), labelNotFound

	case router.MethodPost:
		if h, ok := e.table.Lookup(router.MethodPost, req.Path); ok {
			return e.invoke(h, req), router.MethodPost + " " + req.Path
		}
		return http.NotFound(), labelNotFound

	default:
		return http.MethodNotAllowed(), labelMethodNotAllowed
	}
}

// invoke runs h. Errors, panics and unusable status codes become a 500; a
// nil response becomes the default response. Informational statuses are
// unusable since a final response must follow them.
func (e *Engine) invoke(h http.Handler, req *http.Request) (resp *http.Response) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Str("request_id", req.ID).
				Str("method", req.Method).
				Str("path", req.Path).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("handler panicked")
			resp = http.InternalError()
		}
	}()

	resp, err := h.Handle(req)
	switch {
	case err != nil:
		e.logger.Error().
			Err(err).
			Str("request_id", req.ID).
			Str("method", req.Method).
			Str("path", req.Path).
			Msg("handler failed")
		return http.InternalError()
	case resp == nil:
		return http.Default()
	case resp.Status != 0 && (resp.Status < 200 || resp.Status > 999):
		e.logger.Error().
			Int("status", resp.Status).
			Str("request_id", req.ID).
			Str("path", req.Path).
			Msg("handler returned an invalid status code")
		return http.InternalError()
	}
	return resp
}
