package httpfx

import (
	"net/http"
	"strings"

	"github.com/eser/iomanager/pkg/ajan/httpfx/uris"
)

// Router wraps a stdlib http.ServeMux, adding per-prefix middleware
// (Use), nested prefixes (Group), and Route registration that parses
// patterns through uris.ParsePattern for later OpenAPI introspection.
type Router struct {
	path     string
	mux      *http.ServeMux
	handlers []Handler
	routes   []*Route
}

// NewRouter creates a Router mounted at path with a fresh underlying mux.
func NewRouter(path string) *Router {
	return &Router{ //nolint:exhaustruct
		path: path,
		mux:  http.NewServeMux(),
	}
}

func (router *Router) GetPath() string {
	return router.path
}

func (router *Router) GetMux() *http.ServeMux {
	return router.mux
}

func (router *Router) GetHandlers() []Handler {
	return router.handlers
}

func (router *Router) GetRoutes() []*Route {
	return router.routes
}

// Use appends handlers that run, in order, before every route registered
// on this router (or on a Group created from it) from this point on. A Group
// created before the call keeps its own copy and does not get them.
func (router *Router) Use(handlers ...Handler) *Router {
	router.handlers = append(router.handlers, handlers...)

	return router
}

// Group returns a child Router mounted at path under this router's path,
// sharing the same mux and inheriting the middleware registered so far.
func (router *Router) Group(path string) *Router {
	return &Router{ //nolint:exhaustruct
		path:     joinPath(router.path, path),
		mux:      router.mux,
		handlers: append([]Handler{}, router.handlers...),
	}
}

// Route parses pattern (e.g. "GET /widgets/{id}"), prefixes its path with
// the router's mount path, and registers the combined handler chain
// (router middleware followed by handlers) on the underlying mux.
func (router *Router) Route(pattern string, handlers ...Handler) *Route {
	parsed, err := uris.ParsePattern(pattern)
	if err != nil {
		panic(err)
	}

	parsed.Path = joinPath(router.path, parsed.Path)
	parsed.Str = strings.TrimSpace(parsed.Method + " " + parsed.Host + parsed.Path)

	chain := make([]Handler, 0, len(router.handlers)+len(handlers))
	chain = append(chain, router.handlers...)
	chain = append(chain, handlers...)

	route := &Route{ //nolint:exhaustruct
		Pattern:  parsed,
		Handlers: chain,
	}

	route.MuxHandlerFunc = func(w http.ResponseWriter, r *http.Request) {
		ctx := &Context{ //nolint:exhaustruct
			Request:        r,
			ResponseWriter: w,
			Results:        Results{},
			handlers:       route.Handlers,
			index:          -1,
		}

		result := ctx.Next()

		if result.RedirectToURI() != "" {
			http.Redirect(w, r, result.RedirectToURI(), result.StatusCode())

			return
		}

		w.WriteHeader(result.StatusCode())
		_, _ = w.Write(result.Body())
	}

	router.mux.HandleFunc(parsed.Str, route.MuxHandlerFunc)
	router.routes = append(router.routes, route)

	return route
}

func joinPath(base, sub string) string {
	base = strings.TrimSuffix(base, "/")

	if !strings.HasPrefix(sub, "/") {
		sub = "/" + sub
	}

	return base + sub
}
