package llmutils_test

import (
	"testing"

	"github.com/meadowhq/metaagent/pkg/llms"
	"github.com/meadowhq/metaagent/pkg/llmutils"
	"github.com/stretchr/testify/assert"
)

func TestCleanJSON(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `{"a":1}`, string(llmutils.CleanJSON([]byte("Sure, here you go: {\"a\":1} hope it helps"))))
	assert.Equal(t, `[1,2]`, string(llmutils.CleanJSON([]byte("```json\n[1,2]\n```"))))
	assert.Equal(t, `{"a":[1,2]}`, string(llmutils.CleanJSON([]byte(`{"a":[1,2]}`))))
	assert.Equal(t, "no json here", string(llmutils.CleanJSON([]byte("no json here"))))
}

func TestToJSON(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `{"a":1}`, llmutils.ToJSON(map[string]int{"a": 1}))
	assert.Equal(t, "{\n\t\"a\": 1\n}", llmutils.ToJSONIndent(map[string]int{"a": 1}))
	assert.Equal(t, "{\n\t\"a\": 1\n}", llmutils.JSONIndent(`{"a":1}`))
	assert.Equal(t, "\n```json\n{}\n```\n", llmutils.BackticksJSON(" {} "))
}

func TestCountMessagesContentSize(t *testing.T) {
	t.Parallel()

	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "hello"),
		llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
			ID:           "1",
			FunctionCall: &llms.FunctionCall{Name: "tool", Arguments: `{}`},
		}),
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
			ToolCallID: "1",
			Name:       "tool",
			Content:    "result",
		}),
	}
	// 5 + (4 + 2) + 6
	assert.Equal(t, uint64(17), llmutils.CountMessagesContentSize(msgs))
}

func TestCountTokens(t *testing.T) {
	t.Parallel()

	in, out, total := llmutils.CountTokens(nil)
	assert.Zero(t, in)
	assert.Zero(t, out)
	assert.Zero(t, total)

	resp := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			Content: "hi",
			GenerationInfo: map[string]any{
				"InputTokens":  int64(10),
				"OutputTokens": int64(3),
			},
		}},
	}
	in, out, total = llmutils.CountTokens(resp)
	assert.Equal(t, int64(10), in)
	assert.Equal(t, int64(3), out)
	assert.Equal(t, int64(13), total)

	assert.Equal(t, uint64(2), llmutils.CountResponseContentSize(resp))
}

func TestFindLastUserQuestion(t *testing.T) {
	t.Parallel()

	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "system"),
		llms.MessageFromTextParts(llms.RoleHuman, "first"),
		llms.MessageFromTextParts(llms.RoleAI, "answer"),
		llms.MessageFromTextParts(llms.RoleHuman, "second"),
	}
	assert.Equal(t, "second", llmutils.FindLastUserQuestion(msgs))
	assert.Empty(t, llmutils.FindLastUserQuestion(nil))
}
