package gate

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Router is the routing surface the gate needs from the wrapped server.
// *chi.Mux satisfies it directly; use Gorilla for a *mux.Router.
type Router interface {
	Use(middlewares ...func(http.Handler) http.Handler)
	Get(pattern string, handlerFn http.HandlerFunc)
}

type gorillaRouter struct {
	router      *mux.Router
	middlewares []func(http.Handler) http.Handler
	notFound    http.Handler
	notAllowed  http.Handler
}

// Gorilla adapts a gorilla/mux router.
// gorilla runs middleware only for matched routes, so Use also wraps the 404 and
// 405 handlers. Set custom ones on the router before calling Gorilla.
func Gorilla(router *mux.Router) Router {
	g := &gorillaRouter{
		router:     router,
		notFound:   router.NotFoundHandler,
		notAllowed: router.MethodNotAllowedHandler,
	}

	if g.notFound == nil {
		g.notFound = http.NotFoundHandler()
	}

	if g.notAllowed == nil {
		g.notAllowed = http.HandlerFunc(methodNotAllowed)
	}

	return g
}

func (g *gorillaRouter) Use(middlewares ...func(http.Handler) http.Handler) {
	for _, mw := range middlewares {
		g.router.Use(mux.MiddlewareFunc(mw))
	}

	g.middlewares = append(g.middlewares, middlewares...)
	g.router.NotFoundHandler = g.wrap(g.notFound)
	g.router.MethodNotAllowedHandler = g.wrap(g.notAllowed)
}

func (g *gorillaRouter) Get(pattern string, handlerFn http.HandlerFunc) {
	g.router.HandleFunc(pattern, handlerFn).Methods(http.MethodGet)
}

// wrap applies the middlewares in registration order, first one outermost.
func (g *gorillaRouter) wrap(h http.Handler) http.Handler {
	for i := len(g.middlewares) - 1; i >= 0; i-- {
		h = g.middlewares[i](h)
	}

	return h
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusMethodNotAllowed)
}
