package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInboundValidMessage(t *testing.T) {
	raw := []byte(`{"op":"INIT","data":{"identifier":"dQw4w9WgXcQ","variant":"slowed_reverb_mid"}}`)

	msg, err := DecodeInbound(raw)
	require.NoError(t, err)
	assert.Equal(t, OpInit, msg.Op)
	assert.Equal(t, "dQw4w9WgXcQ", msg.Data.Identifier)
	assert.Equal(t, "slowed_reverb_mid", msg.Data.Variant)
}

func TestDecodeInboundRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"malformed json", `{"op":"INIT"`},
		{"unknown op", `{"op":"RESTART","data":{"identifier":"dQw4w9WgXcQ","variant":"resample_up"}}`},
		{"outbound-only op", `{"op":"INTERNAL_ERROR","data":{"identifier":"dQw4w9WgXcQ","variant":"resample_up"}}`},
		{"missing op", `{"data":{"identifier":"dQw4w9WgXcQ","variant":"resample_up"}}`},
		{"missing identifier", `{"op":"INIT","data":{"variant":"resample_up"}}`},
		{"missing variant", `{"op":"INIT","data":{"identifier":"dQw4w9WgXcQ"}}`},
		{"missing data", `{"op":"INIT"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeInbound([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestNewErrorMessageWire(t *testing.T) {
	msg := NewErrorMessage("invalid message", ErrorCodeValidation, false)

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded struct {
		Op   string    `json:"op"`
		Data ErrorData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "INTERNAL_ERROR", decoded.Op)
	assert.Equal(t, ErrorCodeValidation, decoded.Data.Code)
	assert.Equal(t, "invalid message", decoded.Data.Message)
	assert.False(t, decoded.Data.Disconnected)
}
