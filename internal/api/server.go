package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/router-panel/router-panel-pro/internal/auth"
	"github.com/router-panel/router-panel-pro/internal/config"
	"github.com/router-panel/router-panel-pro/internal/device"
	"github.com/router-panel/router-panel-pro/internal/models"
	"github.com/router-panel/router-panel-pro/internal/provision"
	"github.com/router-panel/router-panel-pro/internal/telemetry"
	"github.com/router-panel/router-panel-pro/internal/terminal"
	"github.com/router-panel/router-panel-pro/internal/upstream"
)

// RESTServer represents the gateway's REST API server
type RESTServer struct {
	config       *config.Config
	store        upstream.Store
	resolver     *device.Resolver
	factory      *device.Factory
	orchestrator *provision.Orchestrator
	telemetry    *telemetry.Engine
	bridge       *terminal.Bridge
	auth         *auth.JWTManager
	router       chi.Router
	server       *http.Server
}

// NewRESTServer creates a new REST API server
func NewRESTServer(cfg *config.Config, store upstream.Store, engine *telemetry.Engine) *RESTServer {
	s := &RESTServer{
		config:       cfg,
		store:        store,
		resolver:     device.NewResolver(store),
		factory:      device.NewFactory(cfg.Gateway.RequestTimeout, cfg.Gateway.LegacyPort, cfg.Gateway.LegacyTLSPort),
		orchestrator: provision.NewOrchestrator(store),
		telemetry:    engine,
		bridge:       terminal.NewBridge(cfg.Terminal.SSHPort, cfg.Terminal.DialTimeout),
		auth:         auth.NewJWTManager(&cfg.JWT),
		router:       chi.NewRouter(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all routes
func (s *RESTServer) setupRoutes() {
	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		s.setupAPIRoutes(r)
	})
}

// ListenAndServe starts the server
func (s *RESTServer) ListenAndServe() error {
	s.server.Addr = fmt.Sprintf("%s:%d", s.config.API.Host, s.config.API.Port)
	log.Info().Str("addr", s.server.Addr).Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *RESTServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// authMiddleware is the authentication middleware
func (s *RESTServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.respondError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.respondError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		claims, err := s.auth.ValidateToken(parts[1])
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// claimsKey is the context key for validated claims
type claimsKey struct{}

// resolveClient resolves the device id from the URL into a live protocol
// client, passing the caller's authorization through to the datastore
func (s *RESTServer) resolveClient(r *http.Request) (device.Client, *models.DeviceProfile, error) {
	deviceID := chi.URLParam(r, "deviceID")
	profile, err := s.resolver.Resolve(r.Context(), r.Header.Get("Authorization"), deviceID)
	if err != nil {
		return nil, nil, err
	}

	client, err := s.factory.Client(profile)
	if err != nil {
		return nil, nil, err
	}
	return client, profile, nil
}
