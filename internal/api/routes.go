package api

import (
	"github.com/go-chi/chi/v5"
)

// setupAPIRoutes sets up API v1 routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Health check
	r.Get("/health", s.HandleHealth)
	r.Get("/", s.HandleRoot)

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.HandleLogin)
		r.Post("/refresh", s.HandleRefresh)
	})

	// Terminal channel: credentials arrive in the first framed message,
	// so the route sits outside the JWT middleware
	r.Get("/terminal", s.HandleTerminal)

	// Device gateway
	r.Route("/gateway/{deviceID}", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/test", s.HandleConnectionTest)
		r.Get("/interfaces", s.HandleListInterfaces)
		r.Get("/traffic", s.HandleTraffic)
		r.Get("/resources", s.HandleResources)

		// Subscribers
		r.Get("/secrets", s.HandleListSecrets)
		r.Get("/active", s.HandleListActive)
		r.Post("/subscriber", s.HandleSaveSubscriber)
		r.Post("/subscriber/payment", s.HandlePayment)
		r.Delete("/subscriber/{name}", s.HandleDeleteSubscriber)

		// Individual provisioning entities
		r.Post("/scheduler", s.HandleUpsertScheduler)
		r.Post("/queue", s.HandleUpsertQueue)

		// Device-hosted files (portal page assets)
		r.Get("/files", s.HandleListFiles)
		r.Get("/files/read", s.HandleReadFile)
		r.Put("/files", s.HandleWriteFile)

		// WAN routes
		r.Get("/wan", s.HandleListWANRoutes)
		r.Post("/wan/toggle", s.HandleToggleWANRoutes)

		// Generic translator surface
		r.HandleFunc("/proxy/*", s.HandleProxy)
	})
}
