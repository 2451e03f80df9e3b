package http

// Handler produces the response for a routed request. The request is only
// valid for the duration of the call.
type Handler interface {
	Handle(req *Request) (*Response, error)
}

// HandlerFunc adapts a function or closure to Handler.
type HandlerFunc func(req *Request) (*Response, error)

// Handle calls f(req).
func (f HandlerFunc) Handle(req *Request) (*Response, error) {
	return f(req)
}
