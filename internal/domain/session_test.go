package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRecord_RoundTrip(t *testing.T) {
	raw := `{
		"api_key": "sk-123",
		"theme": "dark",
		"history_convos": {
			"c1": [
				{"role": "user", "content": "hi", "time": "2024-01-02 03:04:05"},
				{"role": "assistant", "content": "hello", "time": "2024-01-02 03:04:06"}
			]
		}
	}`

	var rec SessionRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))

	assert.Equal(t, "sk-123", rec.APIKey)
	assert.True(t, rec.HasAPIKey())
	assert.Equal(t, map[string]any{"theme": "dark"}, rec.Fields)
	require.Len(t, rec.HistoryConvos["c1"], 2)
	assert.Equal(t, "2024-01-02 03:04:05", rec.HistoryConvos["c1"][0].Time)
	assert.Equal(t, "hi", rec.HistoryConvos["c1"][0].Data["content"])
	assert.NotContains(t, rec.HistoryConvos["c1"][0].Data, "time")

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var again SessionRecord
	require.NoError(t, json.Unmarshal(data, &again))
	assert.Equal(t, rec, again)
}

func TestSessionRecord_NonStringAPIKeyIsPlainField(t *testing.T) {
	var rec SessionRecord
	require.NoError(t, json.Unmarshal([]byte(`{"api_key": false}`), &rec))

	assert.False(t, rec.HasAPIKey())
	assert.Equal(t, false, rec.Fields["api_key"])

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"api_key": false}`, string(data))
}

func TestSessionRecord_EmptyOmitsContainers(t *testing.T) {
	data, err := json.Marshal(SessionRecord{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestSessionRecord_CloneIsDeep(t *testing.T) {
	rec := SessionRecord{
		HistoryConvos: map[string][]HistoryEntry{
			"c1": {{Time: "t", Data: map[string]any{"content": "a"}}},
		},
	}

	c := rec.Clone()
	c.HistoryConvos["c1"][0].Data["content"] = "b"
	c.HistoryConvos["c1"] = append(c.HistoryConvos["c1"], HistoryEntry{Time: "u"})

	assert.Len(t, rec.HistoryConvos["c1"], 1)
	assert.Equal(t, "a", rec.HistoryConvos["c1"][0].Data["content"])
}
