package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListDevicesPassesAuthorizationThrough(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/api/collections/devices/records", r.URL.Path)

		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"id": "dev1", "host": "10.0.0.1", "username": "admin", "protocol": "rest"},
				{"id": "dev2", "host": "10.0.0.2", "username": "admin", "protocol": "legacy"},
			},
		})
	}))
	defer ts.Close()

	client := NewClient(ts.URL, 5*time.Second)
	devices, err := client.ListDevices(context.Background(), "Bearer panel-token")
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.Equal(t, "Bearer panel-token", gotAuth)
	assert.Equal(t, "10.0.0.1", devices[0].Host)
	assert.Equal(t, "dev2", devices[1].ID)
}

func TestListDevicesUnavailable(t *testing.T) {
	// nothing listens here
	client := NewClient("http://127.0.0.1:1", 500*time.Millisecond)

	_, err := client.ListDevices(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestListDevicesRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"message": "token expired"})
	}))
	defer ts.Close()

	client := NewClient(ts.URL, 5*time.Second)
	_, err := client.ListDevices(context.Background(), "Bearer stale")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.Status)
	assert.Equal(t, "token expired", statusErr.Message)
}

func TestUpsertCustomerCreatesWhenAbsent(t *testing.T) {
	var created map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
		case http.MethodPost:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("{}"))
		default:
			t.Fatalf("unexpected method %s", r.Method)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL, 5*time.Second)
	err := client.UpsertCustomer(context.Background(), "", "alice", map[string]any{"plan": "Basic"})
	require.NoError(t, err)

	assert.Equal(t, "alice", created["name"])
	assert.Equal(t, "Basic", created["plan"])
}

func TestUpsertCustomerPatchesWhenPresent(t *testing.T) {
	var patchedPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{{"id": "rec99"}},
			})
		case http.MethodPatch:
			patchedPath = r.URL.Path
			w.Write([]byte("{}"))
		default:
			t.Fatalf("unexpected method %s", r.Method)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL, 5*time.Second)
	err := client.UpsertCustomer(context.Background(), "", "alice", map[string]any{"plan": "Basic"})
	require.NoError(t, err)

	assert.Equal(t, "/api/collections/customers/records/rec99", patchedPath)
}
