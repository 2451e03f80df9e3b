package http

import (
	"encoding/json"
	nethttp "net/http"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
)

// ContentTypeJSON is sent on every response.
const ContentTypeJSON = "application/json"

// Response is a status, a set of extra headers and a JSON body. Responses
// returned by handlers are never modified by the engine, so a handler may
// return the same *Response from concurrent calls.
type Response struct {
	Status int
	Header map[string]string
	Body   []byte
}

// Head carries the per-exchange values the engine adds when writing.
type Head struct {
	RequestID string
	Date      string
	Close     bool

	// set for HEAD requests: headers are written, the body is not
	OmitBody bool
}

type messageBody struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

var (
	defaultBody          = mustMarshal(messageBody{Message: "Hello from Defacto Backend!", Status: "ok"})
	notFoundBody         = errorJSON(nethttp.StatusNotFound)
	methodNotAllowedBody = errorJSON(nethttp.StatusMethodNotAllowed)
	internalErrorBody    = errorJSON(nethttp.StatusInternalServerError)
)

// NewResponse wraps an already encoded JSON body.
func NewResponse(status int, body []byte) *Response {
	return &Response{Status: status, Body: body}
}

// JSON encodes v as the response body.
func JSON(status int, v any) (*Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return NewResponse(status, data), nil
}

// Default is the 200 response served for GET / when nothing is registered.
func Default() *Response {
	return NewResponse(nethttp.StatusOK, defaultBody)
}

// NotFound is returned when no route matches.
func NotFound() *Response {
	return NewResponse(nethttp.StatusNotFound, notFoundBody)
}

// MethodNotAllowed is returned for any method other than GET or POST.
func MethodNotAllowed() *Response {
	return NewResponse(nethttp.StatusMethodNotAllowed, methodNotAllowedBody)
}

// InternalError is returned when a handler fails.
func InternalError() *Response {
	return NewResponse(nethttp.StatusInternalServerError, internalErrorBody)
}

// Error builds {"error": <status text>, "status": <code>}.
func Error(status int) *Response {
	return NewResponse(status, errorJSON(status))
}

// SetHeader sets an extra response header and returns r.
func (r *Response) SetHeader(key, value string) *Response {
	if r.Header == nil {
		r.Header = make(map[string]string)
	}
	r.Header[key] = value
	return r
}

// managed headers are always written by AppendTo itself
var managed = map[string]bool{
	"Content-Type":      true,
	"Content-Length":    true,
	"Connection":        true,
	"Date":              true,
	"Transfer-Encoding": true,
	"X-Request-Id":      true,
}

// BodyAllowed reports whether a response with status may carry a body.
// 1xx, 204 and 304 responses never do.
func BodyAllowed(status int) bool {
	switch {
	case status >= 100 && status < 200:
		return false
	case status == nethttp.StatusNoContent, status == nethttp.StatusNotModified:
		return false
	}
	return true
}

// AppendTo serializes r as an HTTP/1.1 response onto b. The body and its
// Content-Length are dropped for statuses that cannot carry a body.
func (r *Response) AppendTo(b []byte, h Head) []byte {
	status := r.Status
	if status == 0 {
		status = nethttp.StatusOK
	}
	hasBody := BodyAllowed(status)

	b = append(b, "HTTP/1.1 "...)
	b = strconv.AppendInt(b, int64(status), 10)
	b = append(b, ' ')
	b = append(b, statusText(status)...)
	b = append(b, "\r\nContent-Type: "...)
	b = append(b, ContentTypeJSON...)
	b = append(b, "\r\n"...)
	if hasBody {
		b = append(b, "Content-Length: "...)
		b = strconv.AppendInt(b, int64(len(r.Body)), 10)
		b = append(b, "\r\n"...)
	}

	if h.Date != "" {
		b = appendHeader(b, "Date", h.Date)
	}
	if h.RequestID != "" {
		b = appendHeader(b, "X-Request-ID", h.RequestID)
	}
	if h.Close {
		b = appendHeader(b, "Connection", "close")
	}

	if len(r.Header) > 0 {
		keys := make([]string, 0, len(r.Header))
		for k := range r.Header {
			// CR/LF would let a handler split the response
			if !managed[textproto.CanonicalMIMEHeaderKey(k)] && !strings.ContainsAny(k+r.Header[k], "\r\n") {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			b = appendHeader(b, k, r.Header[k])
		}
	}

	b = append(b, "\r\n"...)
	if !hasBody || h.OmitBody {
		return b
	}
	return append(b, r.Body...)
}

func appendHeader(b []byte, key, value string) []byte {
	b = append(b, key...)
	b = append(b, ": "...)
	b = append(b, value...)
	return append(b, "\r\n"...)
}

// statusText returns the HTTP status text for the given code
func statusText(code int) string {
	if text := nethttp.StatusText(code); text != "" {
		return text
	}
	return "Unknown"
}

func errorJSON(status int) []byte {
	return mustMarshal(errorBody{Error: statusText(status), Status: status})
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
