package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentPayloadRoundTrip(t *testing.T) {
	payload := CommentPayload{
		Plan:     "Basic",
		DueDate:  "2024-06-01",
		DueTime:  "00:00:00",
		Type:     "prepaid",
		Customer: "Alice Jones",
	}

	encoded := payload.Encode()
	assert.True(t, json.Valid([]byte(encoded)))

	decoded := ParseComment(encoded)
	assert.Equal(t, payload, decoded)
}

func TestParseCommentToleratesFreeForm(t *testing.T) {
	assert.Equal(t, CommentPayload{}, ParseComment("installed 2019, roof antenna"))
	assert.Equal(t, CommentPayload{}, ParseComment(""))
}

func TestEncodeEmptyPayloadIsValidJSON(t *testing.T) {
	encoded := CommentPayload{}.Encode()
	require.True(t, json.Valid([]byte(encoded)))
	assert.Equal(t, "{}", encoded)
}

func TestBillingCycleMonths(t *testing.T) {
	assert.Equal(t, 1, CycleMonthly.Months())
	assert.Equal(t, 3, CycleQuarterly.Months())
	assert.Equal(t, 12, CycleAnnually.Months())
	assert.Equal(t, 0, BillingCycle("").Months())
	assert.Equal(t, 0, BillingCycle("weekly").Months())
}

func TestDeviceProfileValidate(t *testing.T) {
	valid := DeviceProfile{ID: "d", Host: "10.0.0.1", Username: "admin", Protocol: ProtocolLegacy}
	assert.NoError(t, valid.Validate())

	missingHost := valid
	missingHost.Host = ""
	assert.Error(t, missingHost.Validate())

	badProtocol := valid
	badProtocol.Protocol = "telnet"
	assert.Error(t, badProtocol.Validate())
}
