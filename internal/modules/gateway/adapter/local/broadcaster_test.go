package local

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingFanout struct {
	messages [][]byte
}

func (f *recordingFanout) Broadcast(message []byte) {
	f.messages = append(f.messages, message)
}

type poolUpdated struct {
	Round int64 `json:"round"`
}

func (poolUpdated) Command() string { return "pool_updated" }

func TestBroadcaster(t *testing.T) {
	f := &recordingFanout{}
	b := NewBroadcaster(f)

	b.Broadcast(poolUpdated{Round: 4})
	b.Broadcast(map[string]int{"x": 1})
	b.Broadcast(func() {}) // not encodable, dropped

	require.Len(t, f.messages, 2)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(f.messages[0], &got))
	assert.Equal(t, "nikepig_lottery", got["game"])
	assert.Equal(t, "pool_updated", got["command"])
	assert.Equal(t, float64(4), got["data"].(map[string]interface{})["round"])

	require.NoError(t, json.Unmarshal(f.messages[1], &got))
	assert.Equal(t, "event", got["command"])
}
