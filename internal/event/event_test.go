package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecommersive/nexmosphere-server/internal/osc"
)

func TestNewSerial(t *testing.T) {
	ts := time.Date(2024, 6, 1, 14, 30, 5, 123_000_000, time.UTC)

	evt := NewSerial(ts, "XR[P0]")

	assert.Equal(t, "14:30:05.123", evt.Timestamp)
	assert.Equal(t, "XR[P0]", evt.Data)
	assert.Equal(t, KindSerial, evt.Kind)
}

func TestSerialEventJSON(t *testing.T) {
	ts := time.Date(2024, 6, 1, 14, 30, 5, 0, time.UTC)

	data, err := json.Marshal(NewSerial(ts, "XR[P0]"))
	require.NoError(t, err)

	assert.JSONEq(t, `{"timestamp":"14:30:05.000","data":"XR[P0]","type":"serial_data"}`, string(data))
}

func TestTuioEventJSON(t *testing.T) {
	ts := time.Date(2024, 6, 1, 9, 0, 0, 500_000_000, time.UTC)
	messages := []osc.Message{
		{Address: "/tuio/2Dcur", Args: []any{"alive", int32(2)}},
	}

	data, err := json.Marshal(NewTuio(ts, messages))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"timestamp": "09:00:00.500",
		"type": "tuio_data",
		"messages": [{"address": "/tuio/2Dcur", "args": ["alive", 2]}]
	}`, string(data))
}
