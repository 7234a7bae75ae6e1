package agent_test

import (
	"context"
	"sync"
	"testing"

	"github.com/meadowhq/metaagent/agent"
	"github.com/meadowhq/metaagent/chatmodel"
	"github.com/meadowhq/metaagent/pkg/llms"
	"github.com/meadowhq/metaagent/toolserver"
	"github.com/meadowhq/metaagent/tools/describe"
	"github.com/meadowhq/metaagent/tools/keywords"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModel replays scripted responses and records the messages it was
// given. The last response is repeated once the script runs out.
type fakeModel struct {
	mu        sync.Mutex
	responses []*llms.ContentResponse
	calls     [][]llms.Message
	idx       int
}

func (f *fakeModel) GetName() string { return "fake-model" }

func (f *fakeModel) GetProviderType() llms.ProviderType { return llms.ProviderAnthropic }

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, messages)
	resp := f.responses[f.idx]
	if f.idx < len(f.responses)-1 {
		f.idx++
	}
	return resp, nil
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			Content:    text,
			StopReason: "stop",
		}},
	}
}

func toolCallResponse(text string, calls ...llms.ToolCall) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			Content:    text,
			StopReason: "tool_use",
			ToolCalls:  calls,
		}},
	}
}

func newServer(t *testing.T) *toolserver.Server {
	t.Helper()
	kw, err := keywords.New()
	require.NoError(t, err)
	desc, err := describe.New()
	require.NoError(t, err)
	srv, err := toolserver.New("metadata", "1.0.0", kw, desc)
	require.NoError(t, err)
	return srv
}

func drain(t *testing.T, stream *agent.Stream) []chatmodel.Message {
	t.Helper()
	var out []chatmodel.Message
	for msg := range stream.Messages() {
		out = append(out, msg)
	}
	return out
}

func TestNew(t *testing.T) {
	_, err := agent.New(nil, nil, agent.Config{})
	assert.EqualError(t, err, "missing model")

	srv := newServer(t)
	a, err := agent.New(&fakeModel{}, srv, agent.Config{})
	require.NoError(t, err)
	assert.Equal(t, "metaagent", a.Name())
	assert.Len(t, a.Tools(), 2)
}

func TestToolFiltering(t *testing.T) {
	srv := newServer(t)
	a, err := agent.New(&fakeModel{}, srv, agent.Config{
		Name:         "filtered",
		AllowedTools: []string{"mcp__metadata__generate_keywords"},
	})
	require.NoError(t, err)
	require.Len(t, a.Tools(), 1)
	assert.Equal(t, "mcp__metadata__generate_keywords", a.Tools()[0].Name())

	a, err = agent.New(&fakeModel{}, newServer(t), agent.Config{
		DisallowedTools: []string{"mcp__metadata__generate_description"},
	})
	require.NoError(t, err)
	require.Len(t, a.Tools(), 1)
	assert.Equal(t, "mcp__metadata__generate_keywords", a.Tools()[0].Name())
}

func TestQueryToolCallLoop(t *testing.T) {
	model := &fakeModel{
		responses: []*llms.ContentResponse{
			toolCallResponse("Let me extract keywords.", llms.ToolCall{
				ID: "call_1",
				FunctionCall: &llms.FunctionCall{
					Name:      "mcp__metadata__generate_keywords",
					Arguments: `{"content":"alpha alpha beta gamma words","max_keywords":2}`,
				},
			}),
			textResponse("Keywords: alpha, beta"),
		},
	}

	a, err := agent.New(model, newServer(t), agent.Config{Name: "meta"})
	require.NoError(t, err)

	ctx, sess, err := a.Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	stream, err := sess.Query(ctx, "Extract keywords from: alpha alpha beta gamma words")
	require.NoError(t, err)

	msgs := drain(t, stream)
	require.NoError(t, stream.Err())
	require.Len(t, msgs, 3)

	turn, ok := msgs[0].(chatmodel.AssistantMessage)
	require.True(t, ok)
	require.Len(t, turn.Content, 2)
	assert.Equal(t, chatmodel.TextBlock{Text: "Let me extract keywords."}, turn.Content[0])
	use, ok := turn.Content[1].(chatmodel.ToolUseBlock)
	require.True(t, ok)
	assert.Equal(t, "call_1", use.ID)
	assert.Equal(t, "mcp__metadata__generate_keywords", use.Name)

	results, ok := msgs[1].(chatmodel.AssistantMessage)
	require.True(t, ok)
	require.Len(t, results.Content, 1)
	res, ok := results.Content[0].(chatmodel.ToolResultBlock)
	require.True(t, ok)
	assert.Equal(t, "call_1", res.ToolUseID)
	assert.False(t, res.IsError)
	assert.Equal(t, "alpha, beta", chatmodel.TextOf(res.Content))

	final, ok := msgs[2].(chatmodel.ResultMessage)
	require.True(t, ok)
	assert.Equal(t, "Keywords: alpha, beta", final.Result)
	assert.Equal(t, 2, final.NumTurns)
	assert.False(t, final.IsError)

	// second LLM call carries the tool response
	require.Len(t, model.calls, 2)
	last := model.calls[1][len(model.calls[1])-1]
	assert.Equal(t, llms.RoleTool, last.Role)
}

func TestQueryToolNotFound(t *testing.T) {
	model := &fakeModel{
		responses: []*llms.ContentResponse{
			toolCallResponse("", llms.ToolCall{
				ID: "call_x",
				FunctionCall: &llms.FunctionCall{
					Name:      "mcp__metadata__no_such_tool",
					Arguments: `{}`,
				},
			}),
		},
	}

	a, err := agent.New(model, newServer(t), agent.Config{Name: "meta"})
	require.NoError(t, err)

	ctx, sess, err := a.Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	stream, err := sess.Query(ctx, "call a tool")
	require.NoError(t, err)

	msgs := drain(t, stream)
	require.Error(t, stream.Err())
	assert.Contains(t, stream.Err().Error(), "the number of not found tools is exceeded")

	// each turn streams the tool call and the not-found response
	require.GreaterOrEqual(t, len(msgs), 2)
	results, ok := msgs[1].(chatmodel.AssistantMessage)
	require.True(t, ok)
	res, ok := results.Content[0].(chatmodel.ToolResultBlock)
	require.True(t, ok)
	assert.Contains(t, chatmodel.TextOf(res.Content), "Tool `mcp__metadata__no_such_tool` not found")
	assert.Contains(t, chatmodel.TextOf(res.Content), "mcp__metadata__generate_keywords")
}

func TestQueryToolCallLimit(t *testing.T) {
	model := &fakeModel{
		responses: []*llms.ContentResponse{
			toolCallResponse("", llms.ToolCall{
				ID: "call_1",
				FunctionCall: &llms.FunctionCall{
					Name:      "mcp__metadata__generate_keywords",
					Arguments: `{"content":"alpha beta gamma"}`,
				},
			}),
		},
	}

	a, err := agent.New(model, newServer(t), agent.Config{
		Name:         "meta",
		MaxToolCalls: 1,
	})
	require.NoError(t, err)

	ctx, sess, err := a.Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	stream, err := sess.Query(ctx, "loop forever")
	require.NoError(t, err)
	drain(t, stream)
	require.Error(t, stream.Err())
	assert.Contains(t, stream.Err().Error(), "the tool calls limit is exceeded")
}

func TestQueryMessageLimit(t *testing.T) {
	model := &fakeModel{
		responses: []*llms.ContentResponse{textResponse("ok")},
	}
	a, err := agent.New(model, newServer(t), agent.Config{
		Name:        "meta",
		MaxMessages: 1,
	})
	require.NoError(t, err)

	ctx, sess, err := a.Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	stream, err := sess.Query(ctx, "hi")
	require.NoError(t, err)
	drain(t, stream)
	require.Error(t, stream.Err())
	assert.Contains(t, stream.Err().Error(), "the messages count exceeded limit")
}

func TestQueryEmptyResponseRetries(t *testing.T) {
	model := &fakeModel{
		responses: []*llms.ContentResponse{{}},
	}
	a, err := agent.New(model, newServer(t), agent.Config{Name: "meta"})
	require.NoError(t, err)

	ctx, sess, err := a.Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	stream, err := sess.Query(ctx, "hi")
	require.NoError(t, err)
	drain(t, stream)
	require.Error(t, stream.Err())
	assert.Contains(t, stream.Err().Error(), "LLM returned empty response after 3 retries")
	assert.Len(t, model.calls, 3)
}

func TestQueryAbandonedStream(t *testing.T) {
	model := &fakeModel{
		responses: []*llms.ContentResponse{
			toolCallResponse("", llms.ToolCall{
				ID: "call_1",
				FunctionCall: &llms.FunctionCall{
					Name:      "mcp__metadata__generate_keywords",
					Arguments: `{"content":"alpha beta gamma"}`,
				},
			}),
		},
	}

	a, err := agent.New(model, newServer(t), agent.Config{Name: "meta"})
	require.NoError(t, err)

	base, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx, sess, err := a.Open(base)
	require.NoError(t, err)

	stream, err := sess.Query(ctx, "loop forever")
	require.NoError(t, err)

	// read one message, then walk away without draining
	<-stream.Messages()
	cancel()
	require.NoError(t, sess.Close())

	// the producer must stop and close the channel instead of blocking
	// on the abandoned stream
	for range stream.Messages() {
	}
	require.ErrorIs(t, stream.Err(), context.Canceled)
}

func TestSessionClosed(t *testing.T) {
	a, err := agent.New(&fakeModel{responses: []*llms.ContentResponse{textResponse("ok")}}, newServer(t), agent.Config{})
	require.NoError(t, err)

	ctx, sess, err := a.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())

	_, err = sess.Query(ctx, "hi")
	assert.EqualError(t, err, "session is closed")
}
