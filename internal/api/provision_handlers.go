package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/router-panel/router-panel-pro/internal/models"
)

// ========== Composite subscriber workflows ==========

// HandleSaveSubscriber runs the subscriber lifecycle workflow
func (s *RESTServer) HandleSaveSubscriber(w http.ResponseWriter, r *http.Request) {
	var req models.SubscriberSave
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		s.respondError(w, http.StatusBadRequest, "subscriber name is required")
		return
	}

	client, _, err := s.resolveClient(r)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}

	result, err := s.orchestrator.SaveSubscriber(r.Context(), client, r.Header.Get("Authorization"), &req)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// HandlePayment applies a payment and rolls the due date forward
func (s *RESTServer) HandlePayment(w http.ResponseWriter, r *http.Request) {
	var req models.SubscriberPayment
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		s.respondError(w, http.StatusBadRequest, "subscriber name is required")
		return
	}

	client, _, err := s.resolveClient(r)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}

	result, err := s.orchestrator.ApplyPayment(r.Context(), client, &req)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// HandleDeleteSubscriber removes a subscriber credential and its derived
// entities (timer, queue)
func (s *RESTServer) HandleDeleteSubscriber(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	client, _, err := s.resolveClient(r)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}

	if err := s.orchestrator.RemoveSubscriber(r.Context(), client, name); err != nil {
		s.respondGatewayError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ========== Individual provisioning entities ==========

// HandleUpsertScheduler upserts a subscriber's deactivation timer directly
func (s *RESTServer) HandleUpsertScheduler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		DueDate string `json:"due_date"`
		DueTime string `json:"due_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.DueDate == "" {
		s.respondError(w, http.StatusBadRequest, "name and due_date are required")
		return
	}

	client, _, err := s.resolveClient(r)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}

	if err := s.orchestrator.UpsertDeactivation(r.Context(), client, req.Name, req.DueDate, req.DueTime); err != nil {
		s.respondGatewayError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUpsertQueue upserts a subscriber's rate-limit queue directly
func (s *RESTServer) HandleUpsertQueue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		RateLimit string `json:"rate_limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	client, _, err := s.resolveClient(r)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}

	address, set, err := s.orchestrator.UpsertQueue(r.Context(), client, req.Name, req.RateLimit)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"set":     set,
		"address": address,
	})
}
