package chatmodel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentBlockUnion(t *testing.T) {
	t.Parallel()
	blocks := []ContentBlock{
		TextBlock{Text: "hello"},
		ToolUseBlock{ID: "t1", Name: "mcp__metadata__generate_keywords", Input: json.RawMessage(`{"text":"x"}`)},
		ToolResultBlock{ToolUseID: "t1", Content: []ContentBlock{TextBlock{Text: "ok"}}},
	}

	var texts, uses, results int
	for _, b := range blocks {
		switch b.(type) {
		case TextBlock:
			texts++
		case ToolUseBlock:
			uses++
		case ToolResultBlock:
			results++
		}
	}
	assert.Equal(t, 1, texts)
	assert.Equal(t, 1, uses)
	assert.Equal(t, 1, results)
}

func TestMessageUnion(t *testing.T) {
	t.Parallel()
	msgs := []Message{
		AssistantMessage{Content: []ContentBlock{TextBlock{Text: "working"}}},
		ResultMessage{Result: "done", NumTurns: 2, DurationMS: 15},
	}

	am, ok := msgs[0].(AssistantMessage)
	require.True(t, ok)
	assert.Equal(t, "working", TextOf(am.Content))

	rm, ok := msgs[1].(ResultMessage)
	require.True(t, ok)
	assert.Equal(t, "done", rm.Result)
	assert.Equal(t, 2, rm.NumTurns)
	assert.False(t, rm.IsError)
}

func TestTextOf(t *testing.T) {
	t.Parallel()
	assert.Empty(t, TextOf(nil))
	got := TextOf([]ContentBlock{
		TextBlock{Text: "Hello "},
		ToolUseBlock{ID: "x", Name: "n"},
		TextBlock{Text: "world"},
	})
	assert.Equal(t, "Hello world", got)
}
