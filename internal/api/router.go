package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/debug", s.handleDebug)

	r.Route("/devices", func(r chi.Router) {
		r.Get("/", s.handleListDevices)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetDevice)
			r.Post("/color", s.handleSetColor)
			r.Post("/brightness", s.handleSetBrightness)
			r.Post("/effect", s.handleSetEffect)
			r.Post("/power", s.handleSetPower)
			r.Post("/name", s.handleSetName)
		})
	})

	r.Get("/ws", s.handleWebSocket)

	return r
}
