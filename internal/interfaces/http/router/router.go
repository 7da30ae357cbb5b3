// Package router mounts resource route groups under a versioned API prefix.
package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Route is one method and path relative to its group.
type Route struct {
	Method   string
	Path     string
	Handlers []gin.HandlerFunc
}

// GET builds a GET route.
func GET(path string, handlers ...gin.HandlerFunc) Route {
	return Route{Method: http.MethodGet, Path: path, Handlers: handlers}
}

// POST builds a POST route.
func POST(path string, handlers ...gin.HandlerFunc) Route {
	return Route{Method: http.MethodPost, Path: path, Handlers: handlers}
}

// DELETE builds a DELETE route.
func DELETE(path string, handlers ...gin.HandlerFunc) Route {
	return Route{Method: http.MethodDelete, Path: path, Handlers: handlers}
}

// Group is the routes of one resource, e.g. /receipts.
type Group struct {
	Name       string
	Prefix     string
	Middleware []gin.HandlerFunc
	Routes     []Route
}

// Describe returns "METHOD prefix+path" for every route, in order.
func (g Group) Describe() []string {
	out := make([]string, 0, len(g.Routes))
	for _, r := range g.Routes {
		out = append(out, r.Method+" "+g.Prefix+r.Path)
	}
	return out
}

func (g Group) mount(parent *gin.RouterGroup) {
	rg := parent.Group(g.Prefix, g.Middleware...)
	for _, r := range g.Routes {
		rg.Handle(r.Method, r.Path, r.Handlers...)
	}
}

// Router collects groups and mounts them on an engine.
type Router struct {
	engine     *gin.Engine
	apiVersion string
	middleware []gin.HandlerFunc
	groups     []Group
}

// Option configures a Router.
type Option func(*Router)

// WithAPIVersion sets the version segment of the prefix, "v1" by default.
func WithAPIVersion(version string) Option {
	return func(r *Router) {
		r.apiVersion = strings.Trim(version, "/")
	}
}

// WithAPIMiddleware adds middleware that runs only for versioned API routes.
func WithAPIMiddleware(middleware ...gin.HandlerFunc) Option {
	return func(r *Router) {
		r.middleware = append(r.middleware, middleware...)
	}
}

// NewRouter creates a Router for engine.
func NewRouter(engine *gin.Engine, opts ...Option) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mount queues groups for Setup.
func (r *Router) Mount(groups ...Group) *Router {
	r.groups = append(r.groups, groups...)
	return r
}

// BasePath is the prefix every group is mounted under.
func (r *Router) BasePath() string {
	return "/api/" + r.apiVersion
}

// Setup registers all groups and returns the full routes it mounted.
func (r *Router) Setup() []string {
	api := r.engine.Group(r.BasePath(), r.middleware...)

	var mounted []string
	for _, g := range r.groups {
		g.mount(api)
		for _, route := range g.Describe() {
			method, path, _ := strings.Cut(route, " ")
			mounted = append(mounted, method+" "+r.BasePath()+path)
		}
	}
	return mounted
}
