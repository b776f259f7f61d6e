package server

import (
	"net/http"
)

// BasicRouter registers [Handler] patterns on an [http.ServeMux] behind a middleware stack.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
}

// NewBasicRouter creates a new [BasicRouter] instance.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use adds middleware, applied in the order it's added.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers handler under a ServeMux pattern such as "GET /callback".
func (r *BasicRouter) Handle(pattern string, handler http.Handler) {
	r.mux.Handle(pattern, r.apply(handler))
}

// Handler registers every pattern returned by [Handler.Routes].
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.apply(handler)
	for _, route := range handler.Routes() {
		r.mux.Handle(route, wrapped)
	}
}

func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// apply wraps handler so the first middleware added runs first.
func (r *BasicRouter) apply(handler http.Handler) http.Handler {
	wrapped := handler
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}
	return wrapped
}
