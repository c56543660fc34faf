package device

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRESTClient points a client at an httptest TLS server, which uses a
// self-signed certificate just like a real device control plane
func newTestRESTClient(t *testing.T, handler http.HandlerFunc) (*RESTClient, *httptest.Server) {
	t.Helper()
	ts := httptest.NewTLSServer(handler)
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return NewRESTClient(u.Hostname(), port, true, "admin", "secret", 5*time.Second), ts
}

func TestRESTClientGetNormalizesRecords(t *testing.T) {
	client, _ := newTestRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/ppp/secret", r.URL.Path)
		assert.Equal(t, "alice", r.URL.Query().Get("name"))

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "secret", pass)

		json.NewEncoder(w).Encode([]map[string]any{
			{".id": "*1", "name": "alice", "profile": "basic-5M"},
		})
	})

	records, err := client.Get(context.Background(), "/ppp/secret", map[string]string{"name": "alice"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "*1", records[0]["id"])
	assert.Equal(t, "*1", records[0][".id"])
}

func TestRESTClientSetPatchesByID(t *testing.T) {
	client, _ := newTestRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/rest/ppp/secret/*1A", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "basic-5M", body["profile"])

		json.NewEncoder(w).Encode(map[string]any{".id": "*1A", "profile": "basic-5M"})
	})

	record, err := client.Set(context.Background(), "/ppp/secret", "*1A", Record{"profile": "basic-5M"})
	require.NoError(t, err)
	assert.Equal(t, "*1A", record["id"])
}

func TestRESTClientDeviceErrorCarriesStatusAndDetail(t *testing.T) {
	client, _ := newTestRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   400,
			"message": "Bad Request",
			"detail":  "no such profile",
		})
	})

	_, err := client.Get(context.Background(), "/ppp/secret", nil)
	require.Error(t, err)

	var deviceErr *DeviceError
	require.ErrorAs(t, err, &deviceErr)
	assert.Equal(t, http.StatusBadRequest, deviceErr.Status)
	assert.Equal(t, "no such profile", deviceErr.Message)
}

func TestRESTClientEmptyBodyIsEmptyResult(t *testing.T) {
	client, _ := newTestRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	records, err := client.Get(context.Background(), "/ppp/active", nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRESTClientRemove(t *testing.T) {
	client, _ := newTestRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/rest/queue/simple/*2", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.Remove(context.Background(), "/queue/simple", "*2"))
}
