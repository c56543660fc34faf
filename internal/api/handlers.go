package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/router-panel/router-panel-pro/internal/device"
	"github.com/router-panel/router-panel-pro/internal/upstream"
)

// ========== Auth handlers ==========

// HandleLogin handles operator login
func (s *RESTServer) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email != s.config.Admin.Email ||
		!s.auth.VerifyPassword(req.Password, s.config.Admin.PasswordHash) {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	accessToken, refreshToken, err := s.auth.GenerateTokenPair(req.Email, true)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(s.config.JWT.AccessTokenTTL.Seconds()),
		"token_type":    "Bearer",
	})
}

// HandleRefresh handles token refresh
func (s *RESTServer) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	accessToken, refreshToken, err := s.auth.RefreshToken(req.RefreshToken)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(s.config.JWT.AccessTokenTTL.Seconds()),
		"token_type":    "Bearer",
	})
}

// ========== Helper methods ==========

// HandleHealth health check
func (s *RESTServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now(),
	})
}

// HandleRoot root handler
func (s *RESTServer) HandleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": s.config.Server.Name,
		"version": s.config.Server.Version,
		"health":  "/api/v1/health",
	})
}

// respondJSON responds with JSON
func (s *RESTServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// respondError responds with the error envelope
func (s *RESTServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"message": message,
	})
}

// respondGatewayError maps the gateway error taxonomy onto HTTP statuses.
// Device-reported statuses pass through; internals are logged, the client
// gets one human-readable message.
func (s *RESTServer) respondGatewayError(w http.ResponseWriter, err error) {
	var configErr *device.ConfigError
	var translationErr *device.TranslationError
	var deviceErr *device.DeviceError
	var statusErr *upstream.StatusError

	switch {
	case errors.Is(err, device.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "device not found")
	case errors.As(err, &configErr):
		s.respondError(w, http.StatusBadRequest, configErr.Error())
	case errors.As(err, &translationErr):
		s.respondError(w, http.StatusBadRequest, translationErr.Error())
	case errors.As(err, &deviceErr):
		status := deviceErr.Status
		if status < 400 || status > 599 {
			status = http.StatusInternalServerError
		}
		s.respondError(w, status, deviceErr.Message)
	case errors.Is(err, upstream.ErrUnavailable):
		log.Error().Err(err).Msg("Panel datastore unreachable")
		s.respondError(w, http.StatusBadGateway, "the database service is not running")
	case errors.As(err, &statusErr):
		s.respondError(w, statusErr.Status, "datastore rejected the request: "+statusErr.Message)
	default:
		log.Error().Err(err).Msg("Gateway request failed")
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}
