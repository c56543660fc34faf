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

	"github.com/router-panel/router-panel-pro/internal/models"
)

func TestFactoryRejectsIncompleteProfiles(t *testing.T) {
	factory := NewFactory(5*time.Second, 8728, 8729)

	tests := []struct {
		name    string
		profile *models.DeviceProfile
	}{
		{"missing host", &models.DeviceProfile{ID: "d", Username: "admin", Protocol: models.ProtocolREST}},
		{"missing username", &models.DeviceProfile{ID: "d", Host: "10.0.0.1", Protocol: models.ProtocolREST}},
		{"unknown protocol", &models.DeviceProfile{ID: "d", Host: "10.0.0.1", Username: "admin", Protocol: "snmp"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.Client(tt.profile)
			require.Error(t, err)

			var configErr *ConfigError
			assert.ErrorAs(t, err, &configErr)
		})
	}
}

func TestFactoryBuildsProtocolBoundClients(t *testing.T) {
	factory := NewFactory(5*time.Second, 8728, 8729)

	rest, err := factory.Client(&models.DeviceProfile{
		ID: "d1", Host: "10.0.0.1", Port: 443, Username: "admin", Protocol: models.ProtocolREST,
	})
	require.NoError(t, err)
	assert.IsType(t, &RESTClient{}, rest)

	legacy, err := factory.Client(&models.DeviceProfile{
		ID: "d2", Host: "10.0.0.2", Port: 8291, Username: "admin", Protocol: models.ProtocolLegacy,
	})
	require.NoError(t, err)
	require.IsType(t, &LegacyClient{}, legacy)

	// the binary API ignores the profile's web port
	assert.Equal(t, 8728, legacy.(*LegacyClient).port)
	assert.False(t, legacy.(*LegacyClient).useTLS)
}

func TestFactoryRESTPlainHTTPViaProfileFlag(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/system/identity", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"name": "lab-router"})
	}))
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	plain := false
	factory := NewFactory(5*time.Second, 8728, 8729)
	client, err := factory.Client(&models.DeviceProfile{
		ID: "d4", Host: u.Hostname(), Port: port, Username: "admin",
		Protocol: models.ProtocolREST, TLS: &plain,
	})
	require.NoError(t, err)

	records, err := client.Get(context.Background(), "/system/identity", nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "lab-router", records[0]["name"])
}

func TestFactoryLegacyTLSVariant(t *testing.T) {
	factory := NewFactory(5*time.Second, 8728, 8729)

	client, err := factory.Client(&models.DeviceProfile{
		ID: "d3", Host: "10.0.0.3", Port: 8729, Username: "admin", Protocol: models.ProtocolLegacy,
	})
	require.NoError(t, err)

	legacy := client.(*LegacyClient)
	assert.Equal(t, 8729, legacy.port)
	assert.True(t, legacy.useTLS)
}
