package http

import (
	"encoding/json"
	"net/textproto"
	"strings"
	"sync"
)

// Request is a parsed HTTP request. It is only valid until ReleaseRequest is
// called; handlers must copy anything they keep.
type Request struct {
	Method string
	Path   string
	Proto  string
	Host   string

	// Canonical header keys, first value only
	Headers map[string]string

	// Query parameters
	Query map[string]string

	// Request body
	Body []byte

	RemoteAddr string
	ID         string
	KeepAlive  bool
}

var requestPool = sync.Pool{
	New: func() any {
		return &Request{
			Headers: make(map[string]string, 8),
			Body:    make([]byte, 0, 1024),
		}
	},
}

// AcquireRequest returns an empty request from the pool.
func AcquireRequest() *Request {
	return requestPool.Get().(*Request)
}

// Reset resets the request for reuse (memory not freed, just reset)
func (r *Request) Reset() {
	r.Method = ""
	r.Path = ""
	r.Proto = ""
	r.Host = ""
	r.RemoteAddr = ""
	r.ID = ""
	r.KeepAlive = false

	for k := range r.Headers {
		delete(r.Headers, k)
	}
	for k := range r.Query {
		delete(r.Query, k)
	}

	// Keep slice capacity, just reset length
	r.Body = r.Body[:0]
}

// ReleaseRequest returns req to the pool.
func ReleaseRequest(req *Request) {
	if req == nil {
		return
	}
	req.Reset()
	requestPool.Put(req)
}

// SetHeader stores a header under its canonical key.
func (r *Request) SetHeader(key, value string) {
	if r.Headers == nil {
		r.Headers = make(map[string]string, 8)
	}
	r.Headers[textproto.CanonicalMIMEHeaderKey(key)] = value
}

// Header returns the first value of the named header.
func (r *Request) Header(key string) string {
	key = textproto.CanonicalMIMEHeaderKey(key)
	if key == "Host" {
		return r.Host
	}
	return r.Headers[key]
}

// Bind decodes the JSON body into v.
func (r *Request) Bind(v any) error {
	return json.Unmarshal(r.Body, v)
}

// AcceptsGzip reports whether the client advertised gzip support.
func (r *Request) AcceptsGzip() bool {
	for _, part := range strings.Split(r.Header("Accept-Encoding"), ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(coding), "gzip") {
			continue
		}
		// gzip;q=0 is an explicit refusal
		return strings.ReplaceAll(strings.TrimSpace(params), " ", "") != "q=0"
	}
	return false
}
