package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/router-panel/router-panel-pro/internal/device"
)

// ========== Dedicated device operations ==========

// HandleConnectionTest verifies a device is reachable and authenticating
func (s *RESTServer) HandleConnectionTest(w http.ResponseWriter, r *http.Request) {
	client, profile, err := s.resolveClient(r)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}

	records, err := client.Get(r.Context(), "/system/identity", nil)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}

	identity := ""
	if len(records) > 0 {
		identity = device.RecordString(records[0], "name")
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"identity": identity,
		"protocol": profile.Protocol,
	})
}

// HandleListInterfaces lists network interfaces
func (s *RESTServer) HandleListInterfaces(w http.ResponseWriter, r *http.Request) {
	client, _, err := s.resolveClient(r)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}

	records, err := client.Get(r.Context(), "/interface", nil)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, records)
}

// HandleTraffic polls interface counters and returns bit-rate samples
func (s *RESTServer) HandleTraffic(w http.ResponseWriter, r *http.Request) {
	client, _, err := s.resolveClient(r)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}

	rates, err := s.telemetry.Poll(r.Context(), chi.URLParam(r, "deviceID"), client)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, rates)
}

// HandleResources returns the device's system resource summary
func (s *RESTServer) HandleResources(w http.ResponseWriter, r *http.Request) {
	client, _, err := s.resolveClient(r)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}

	records, err := client.Get(r.Context(), "/system/resource", nil)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}
	if len(records) == 1 {
		s.respondJSON(w, http.StatusOK, records[0])
		return
	}
	s.respondJSON(w, http.StatusOK, records)
}

// HandleListSecrets lists subscriber credentials
func (s *RESTServer) HandleListSecrets(w http.ResponseWriter, r *http.Request) {
	client, _, err := s.resolveClient(r)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}

	records, err := client.Get(r.Context(), "/ppp/secret", nil)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, records)
}

// HandleListActive lists live subscriber sessions
func (s *RESTServer) HandleListActive(w http.ResponseWriter, r *http.Request) {
	client, _, err := s.resolveClient(r)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}

	records, err := client.Get(r.Context(), "/ppp/active", nil)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, records)
}

// ========== Device-hosted files ==========

// HandleListFiles lists files on the device
func (s *RESTServer) HandleListFiles(w http.ResponseWriter, r *http.Request) {
	client, _, err := s.resolveClient(r)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}

	records, err := client.Get(r.Context(), "/file", nil)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, records)
}

// HandleReadFile reads one device file's contents
func (s *RESTServer) HandleReadFile(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		s.respondError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}

	client, _, err := s.resolveClient(r)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}

	record, err := device.FindOne(r.Context(), client, "/file", map[string]string{"name": name})
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}
	if record == nil {
		s.respondError(w, http.StatusNotFound, "file not found on device")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":     name,
		"contents": device.RecordString(record, "contents"),
	})
}

// HandleWriteFile replaces one device file's contents. Files are created by
// the device itself (portal assets), so a missing file is a 404, not an add.
func (s *RESTServer) HandleWriteFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Contents string `json:"contents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	client, _, err := s.resolveClient(r)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}

	record, err := device.FindOne(r.Context(), client, "/file", map[string]string{"name": req.Name})
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}
	if record == nil {
		s.respondError(w, http.StatusNotFound, "file not found on device")
		return
	}

	if _, err := client.Set(r.Context(), "/file", device.RecordID(record), device.Record{
		"contents": req.Contents,
	}); err != nil {
		s.respondGatewayError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ========== WAN routes ==========

// HandleListWANRoutes lists routes that participate in WAN failover,
// identified by a check-gateway property
func (s *RESTServer) HandleListWANRoutes(w http.ResponseWriter, r *http.Request) {
	client, _, err := s.resolveClient(r)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}

	routes, err := s.wanRoutes(r, client)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, routes)
}

// HandleToggleWANRoutes bulk enables or disables all WAN routes
func (s *RESTServer) HandleToggleWANRoutes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Disabled bool `json:"disabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	client, _, err := s.resolveClient(r)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}

	routes, err := s.wanRoutes(r, client)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}

	toggled := 0
	for _, route := range routes {
		id := device.RecordID(route)
		if id == "" {
			continue
		}
		if _, err := client.Set(r.Context(), "/ip/route", id, device.Record{
			"disabled": req.Disabled,
		}); err != nil {
			s.respondGatewayError(w, err)
			return
		}
		toggled++
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"toggled":  toggled,
		"disabled": req.Disabled,
	})
}

// wanRoutes fetches the route table and keeps entries carrying the
// check-gateway marker
func (s *RESTServer) wanRoutes(r *http.Request, client device.Client) ([]device.Record, error) {
	records, err := client.Get(r.Context(), "/ip/route", nil)
	if err != nil {
		return nil, err
	}

	routes := make([]device.Record, 0, len(records))
	for _, record := range records {
		if _, ok := record["check-gateway"]; ok {
			routes = append(routes, record)
		}
	}
	return routes, nil
}

// ========== Generic translator surface ==========

// HandleProxy forwards an arbitrary legacy-style path and verb to the
// device through the command translator
func (s *RESTServer) HandleProxy(w http.ResponseWriter, r *http.Request) {
	client, _, err := s.resolveClient(r)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}

	var body device.Record
	if r.Body != nil {
		// an empty or absent body is fine for print-style calls
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	query := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}

	result, err := device.Proxy(r.Context(), client, r.Method, chi.URLParam(r, "*"), query, body)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}
	if result == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}
