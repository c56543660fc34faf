package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRESTMirrorsIdentifier(t *testing.T) {
	payload := []any{
		map[string]any{".id": "*1", "name": "ether1"},
		map[string]any{".id": "*2", "name": "ether2"},
		map[string]any{"name": "no-id"},
	}

	result := NormalizeREST(payload).([]any)

	first := result[0].(map[string]any)
	assert.Equal(t, "*1", first["id"])
	assert.Equal(t, "*1", first[".id"], "native field must be kept")

	third := result[2].(map[string]any)
	assert.NotContains(t, third, "id")
}

func TestNormalizeRESTSingleObject(t *testing.T) {
	payload := map[string]any{".id": "*7", "name": "alice"}

	result := NormalizeREST(payload).(map[string]any)

	assert.Equal(t, "*7", result["id"])
}

func TestNormalizeLegacyRewritesKeys(t *testing.T) {
	record := NormalizeLegacy(map[string]string{
		".id":        "*3",
		"rate_limit": "5M/5M",
		"max_limit":  "10M/10M",
		"name":       "alice",
	})

	assert.Equal(t, "*3", record["id"])
	assert.Equal(t, "*3", record[".id"])
	assert.Equal(t, "5M/5M", record["rate-limit"])
	assert.Equal(t, "10M/10M", record["max-limit"])
	assert.Equal(t, "alice", record["name"])
	assert.NotContains(t, record, "rate_limit")
}

func TestLegacyKeyKeepsSystemFields(t *testing.T) {
	assert.Equal(t, ".id", legacyKey(".id"))
	assert.Equal(t, ".nextid", legacyKey(".nextid"))
	assert.Equal(t, "tx-byte", legacyKey("tx_byte"))
}
