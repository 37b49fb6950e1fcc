// Package api exposes the permit engine over HTTP: resolution, checks,
// cache invalidation, response normalization and the resolution log.
package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/permit"
	"github.com/xraph/permit/resolutionlog"
)

// API wires all permit HTTP handlers together.
type API struct {
	eng    *permit.Engine
	logs   resolutionlog.Store
	router forge.Router
}

// New creates an API from an Engine and a Forge router. logs may be nil,
// in which case the resolution log routes are not registered.
func New(eng *permit.Engine, logs resolutionlog.Store, router forge.Router) *API {
	return &API{eng: eng, logs: logs, router: router}
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	if a.router == nil {
		a.router = forge.NewRouter()
	}
	if err := a.RegisterRoutes(a.router); err != nil {
		panic("permit: register routes: " + err.Error())
	}
	return a.router.Handler()
}

// RegisterRoutes registers all API routes into the given Forge router.
func (a *API) RegisterRoutes(router forge.Router) error {
	registerers := []func(forge.Router) error{
		a.registerResolveRoutes,
		a.registerCheckRoutes,
		a.registerCacheRoutes,
		a.registerNormalizeRoutes,
	}
	if a.logs != nil {
		registerers = append(registerers, a.registerResolutionLogRoutes)
	}
	for _, fn := range registerers {
		if err := fn(router); err != nil {
			return err
		}
	}
	return nil
}
