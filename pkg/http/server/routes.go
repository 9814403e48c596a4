package server

import (
	"net/http"

	"github.com/go-logr/logr"
)

// Route is one registered HTTP endpoint with a description, so a binary
// can log what it exposes at startup.
type Route struct {
	Pattern     string       `json:"pattern"`
	Description string       `json:"description"`
	Handler     http.Handler `json:"-"`
}

// Routes collects routes before they are turned into a mux.
type Routes []Route

// Register adds a route. The pattern uses http.ServeMux syntax, including
// the Go 1.22+ method prefix ("GET /metrics").
func (rs *Routes) Register(pattern string, hh http.Handler, desc string) {
	if desc == "" {
		desc = "No description provided"
	}
	*rs = append(*rs, Route{Pattern: pattern, Description: desc, Handler: hh})
}

// Mux builds an http.ServeMux from the registered routes and logs each
// one, so operators can see the exposed surface in the startup logs.
func (rs *Routes) Mux(log logr.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	for _, route := range *rs {
		mux.Handle(route.Pattern, route.Handler)
		log.V(1).Info("registered route", "pattern", route.Pattern, "description", route.Description)
	}
	return mux
}
