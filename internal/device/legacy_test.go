package device

import (
	"errors"
	"testing"

	"github.com/go-routeros/routeros/v3"
	"github.com/go-routeros/routeros/v3/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyRecordsNormalizesSentences(t *testing.T) {
	reply := &routeros.Reply{
		Re: []*proto.Sentence{
			{Map: map[string]string{".id": "*1", "name": "alice", "rx_byte": "1000"}},
			{Map: map[string]string{".id": "*2", "name": "bob", "rx_byte": "2000"}},
		},
	}

	records := replyRecords(reply)
	require.Len(t, records, 2)

	assert.Equal(t, "*1", records[0]["id"])
	assert.Equal(t, "*1", records[0][".id"])
	assert.Equal(t, "1000", records[0]["rx-byte"], "underscore keys rewritten")
	assert.NotContains(t, records[0], "rx_byte")
	assert.Equal(t, "bob", records[1]["name"])
}

func TestReplyRecordsEmptyReplyIsEmptyResultSet(t *testing.T) {
	records := replyRecords(&routeros.Reply{})
	require.NotNil(t, records)
	assert.Empty(t, records)
}

func TestIsEmptyReply(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		empty bool
	}{
		{"no such item", errors.New("from RouterOS device: no such item"), true},
		{"empty reply", errors.New("routeros: unexpected empty reply"), true},
		{"case insensitive", errors.New("No Such Item (4)"), true},
		{"real failure", errors.New("from RouterOS device: failure: already have such name"), false},
		{"login failure", errors.New("invalid user name or password"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.empty, isEmptyReply(tt.err))
		})
	}
}

func TestDeviceMessageStripsLibraryFraming(t *testing.T) {
	err := errors.New("from RouterOS device: failure: already have such name")
	assert.Equal(t, "failure: already have such name", deviceMessage(err))

	// messages without the framing pass through untouched
	plain := errors.New("connection reset by peer")
	assert.Equal(t, "connection reset by peer", deviceMessage(plain))
}

func TestAttributeWordsRendering(t *testing.T) {
	words := attributeWords(Record{
		"name":     "alice",
		"disabled": true,
		"dynamic":  false,
		"limit":    42,
	})

	assert.ElementsMatch(t, []string{
		"=name=alice",
		"=disabled=yes",
		"=dynamic=no",
		"=limit=42",
	}, words)
}

func TestLegacyValue(t *testing.T) {
	assert.Equal(t, "5M/5M", legacyValue("5M/5M"))
	assert.Equal(t, "yes", legacyValue(true))
	assert.Equal(t, "no", legacyValue(false))
	assert.Equal(t, "7", legacyValue(7))
}
