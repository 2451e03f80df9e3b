package router

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/vivooifo-droid/defacto-backend/core/http"
)

// Supported methods
const (
	MethodGet  = "GET"
	MethodPost = "POST"
)

var (
	ErrUnsupportedMethod = errors.New("unsupported method")
	ErrInvalidPath       = errors.New("invalid path")
	ErrNilHandler        = errors.New("nil handler")
)

// Table maps (method, exact path) to a handler. Keys are compared byte for
// byte: "/a" and "/a/" are different routes. Entries are never removed.
//
// The zero value is ready to use. All methods are safe for concurrent use, so
// routes registered while the server is running become visible to the next
// lookup.
type Table struct {
	mu     sync.RWMutex
	routes map[string]map[string]http.Handler // method -> path -> handler
}

// Route is one registered (method, path) pair.
type Route struct {
	Method string
	Path   string
}

// NewTable creates an initialized table.
func NewTable() *Table {
	t := &Table{}
	t.Init()
	return t
}

// Init makes sure a mapping exists for every supported method. Calling it
// again never drops registered routes.
func (t *Table) Init() {
	t.mu.Lock()
	t.initLocked()
	t.mu.Unlock()
}

func (t *Table) initLocked() {
	if t.routes == nil {
		t.routes = make(map[string]map[string]http.Handler, 2)
	}
	for _, m := range []string{MethodGet, MethodPost} {
		if t.routes[m] == nil {
			t.routes[m] = make(map[string]http.Handler)
		}
	}
}

// Register adds or replaces the handler for (method, path). The last
// registration for a key wins.
func (t *Table) Register(method, path string, h http.Handler) error {
	if !Supported(method) {
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
	if err := ValidatePath(path); err != nil {
		return err
	}
	if h == nil {
		return ErrNilHandler
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.initLocked()
	t.routes[method][path] = h
	return nil
}

// Lookup returns the handler registered for exactly (method, path).
func (t *Table) Lookup(method, path string) (http.Handler, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	h, ok := t.routes[method][path]
	return h, ok
}

// Len returns the number of registered routes.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, paths := range t.routes {
		n += len(paths)
	}
	return n
}

// Routes returns the registered keys sorted by path, then method.
func (t *Table) Routes() []Route {
	t.mu.RLock()
	routes := make([]Route, 0, len(t.routes[MethodGet])+len(t.routes[MethodPost]))
	for method, paths := range t.routes {
		for path := range paths {
			routes = append(routes, Route{Method: method, Path: path})
		}
	}
	t.mu.RUnlock()

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})
	return routes
}

// Supported reports whether method can carry routes.
func Supported(method string) bool {
	return method == MethodGet || method == MethodPost
}

// ValidatePath rejects paths that could never be matched by a request line:
// empty, not rooted, not UTF-8, or containing whitespace, control bytes, '?'
// or '#'.
func ValidatePath(path string) error {
	if path == "" || path[0] != '/' {
		return fmt.Errorf("%w: %q must begin with '/'", ErrInvalidPath, path)
	}
	if !utf8.ValidString(path) {
		return fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidPath, path)
	}
	for i := 0; i < len(path); i++ {
		switch c := path[i]; {
		case c <= ' ' || c == 0x7f:
			return fmt.Errorf("%w: %q contains whitespace or control characters", ErrInvalidPath, path)
		case c == '?' || c == '#':
			return fmt.Errorf("%w: %q contains %q", ErrInvalidPath, path, c)
		}
	}
	return nil
}
