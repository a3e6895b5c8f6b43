package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvidal-dev/schoolscout/internal/llm"
)

func TestToolCallAccumulator(t *testing.T) {
	tests := []struct {
		name   string
		deltas []llm.ToolCallDelta
		want   []ToolCall
	}{
		{
			name: "fragments with one index join into one call",
			deltas: []llm.ToolCallDelta{
				{Index: 0, Name: "get_travel_time", Arguments: `{"origin`},
				{Index: 0, Arguments: `":"a"}`},
			},
			want: []ToolCall{
				{Index: 0, Name: "get_travel_time", Arguments: `{"origin":"a"}`},
			},
		},
		{
			name: "new index flushes the previous call",
			deltas: []llm.ToolCallDelta{
				{Index: 0, Name: "get_travel_time", Arguments: `{}`},
				{Index: 1, Name: "get_travel_time_based_on_arrival_time", Arguments: `{"x`},
				{Index: 1, Arguments: `":1}`},
			},
			want: []ToolCall{
				{Index: 0, Name: "get_travel_time", Arguments: `{}`},
				{Index: 1, Name: "get_travel_time_based_on_arrival_time", Arguments: `{"x":1}`},
			},
		},
		{
			name:   "no deltas",
			deltas: nil,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var acc toolCallAccumulator
			for _, d := range tt.deltas {
				acc.Add(d)
			}
			assert.Equal(t, tt.want, acc.Finish())
		})
	}
}

func TestParseMemoryDecision(t *testing.T) {
	t.Run("plain json", func(t *testing.T) {
		d, err := parseMemoryDecision(`{"update_needed": true, "memories": ["lives in San Jose"]}`)
		require.NoError(t, err)
		assert.True(t, d.UpdateNeeded)
		assert.Equal(t, []string{"lives in San Jose"}, d.Memories)
	})

	t.Run("fenced json", func(t *testing.T) {
		d, err := parseMemoryDecision("```json\n{\"update_needed\": false}\n```")
		require.NoError(t, err)
		assert.False(t, d.UpdateNeeded)
	})

	t.Run("prose is an error", func(t *testing.T) {
		_, err := parseMemoryDecision("I don't think an update is needed.")
		assert.Error(t, err)
	})
}

func TestParseRagDecision(t *testing.T) {
	d, err := parseRagDecision("```\n" + `{
		"fetch_school_data": true,
		"rag_messages": [{"question": "What is the tuition?", "school": "Harker"}],
		"rationale": "tuition question"
	}` + "\n```")
	require.NoError(t, err)
	assert.True(t, d.FetchSchoolData)
	require.Len(t, d.RagMessages, 1)
	assert.Equal(t, "Harker", d.RagMessages[0].School)
}
