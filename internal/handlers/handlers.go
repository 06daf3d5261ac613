// Package handlers provides the built-in action handlers.
package handlers

import (
	"github.com/watzon/autoimport/internal/config"
	"github.com/watzon/autoimport/internal/engine"
	"github.com/watzon/autoimport/internal/models"
)

// RegisterBuiltins registers the query and http_api handlers on reg.
// Query handlers share pool and http_api handlers share one rate limiter, so
// the configured rate holds for the whole process. Every factory call still
// yields a fresh handler.
func RegisterBuiltins(reg *engine.Registry, pool *Pool, cfg config.HandlersConfig) {
	limiter := NewRateLimiter(cfg.HTTP)

	reg.Register(models.KindQuery, func() engine.Handler {
		return NewQueryHandler(pool, cfg.Query)
	})
	reg.Register(models.KindHTTPAPI, func() engine.Handler {
		return newHTTPHandler(cfg.HTTP, limiter)
	})
}
