package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHexID_RoundTrip(t *testing.T) {
	id := NewHexID()
	assert.Len(t, id.String(), 32)

	parsed, err := ParseHexID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestHexID_JSONRoundTrip(t *testing.T) {
	id := NewHexID()
	b, err := json.Marshal(id)
	require.NoError(t, err)

	var out HexID
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, id, out)
}

func TestHexID_ZeroValueJSONIsNull(t *testing.T) {
	var id HexID
	b, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}

func TestParseHexID_RejectsWrongLength(t *testing.T) {
	_, err := ParseHexID("not-32-hex-chars")
	assert.Error(t, err)
}

func TestParseHexID_RejectsNonHex(t *testing.T) {
	_, err := ParseHexID("zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz")
	assert.Error(t, err)
}

func TestErrorKind_DefaultsToTransientForUnclassified(t *testing.T) {
	assert.Equal(t, KindTransient, ErrorKind(assert.AnError))
}

func TestErrorKind_ExtractsWrappedKind(t *testing.T) {
	err := NotFound("artifact_id", "no such artifact")
	assert.Equal(t, KindNotFound, ErrorKind(err))
}

func TestMessage_JSONRoundTrip(t *testing.T) {
	d := &DeferredDisaggregation{
		ID:            7,
		SourceID:      NewHexID(),
		GenerationID:  1234567,
		ArtifactID:    NewHexID(),
		ExtractorType: "html_document",
	}
	msg := d.ToMessage()
	b, err := json.Marshal(msg)
	require.NoError(t, err)

	var out Message
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, msg, out)
}
