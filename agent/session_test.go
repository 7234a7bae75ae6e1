package agent_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/meadowhq/metaagent/agent"
	"github.com/meadowhq/metaagent/pkg/llms"
	"github.com/meadowhq/metaagent/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryWithStoreAndCallback(t *testing.T) {
	model := &fakeModel{
		responses: []*llms.ContentResponse{textResponse("hello there")},
	}

	memStore := store.NewMemoryStore()
	var out bytes.Buffer
	a, err := agent.New(model, newServer(t), agent.Config{
		Name:         "meta",
		SystemPrompt: "You are a metadata assistant.",
		Store:        memStore,
		Callback:     agent.NewPrinterCallback(&out),
	})
	require.NoError(t, err)

	ctx, sess, err := a.Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	stream, err := sess.Query(ctx, "say hello")
	require.NoError(t, err)
	drain(t, stream)
	require.NoError(t, stream.Err())

	// system prompt leads the first LLM call
	require.NotEmpty(t, model.calls)
	first := model.calls[0][0]
	assert.Equal(t, llms.RoleSystem, first.Role)

	// the exchange is persisted under the session chat ID
	stored := memStore.Messages(ctx)
	require.Len(t, stored, 2)
	assert.Equal(t, llms.RoleHuman, stored[0].Role)
	assert.Equal(t, llms.RoleAI, stored[1].Role)

	assert.Contains(t, out.String(), "Agent Start: meta")
	assert.Contains(t, out.String(), "Agent End: meta")
	assert.Contains(t, out.String(), "hello there")

	// a second query on the same chat replays the stored history
	ctx2, sess2, err := a.Open(ctx)
	require.NoError(t, err)
	defer sess2.Close()

	stream, err = sess2.Query(ctx2, "again")
	require.NoError(t, err)
	drain(t, stream)
	require.NoError(t, stream.Err())

	second := model.calls[len(model.calls)-1]
	// system + 2 stored + new user message
	require.Len(t, second, 4)
	assert.Equal(t, llms.RoleHuman, second[3].Role)
}

func TestNoopCallback(t *testing.T) {
	cb := agent.NewNoopCallback()
	ctx := context.Background()
	cb.OnAgentStart(ctx, nil, "in")
	cb.OnAgentEnd(ctx, nil, "in", "out")
	cb.OnAgentError(ctx, nil, "in", assert.AnError)
	cb.OnToolNotFound(ctx, nil, "tool")
	cb.OnToolStart(ctx, nil, "in")
	cb.OnToolEnd(ctx, nil, "in", "out")
	cb.OnToolError(ctx, nil, "in", assert.AnError)
}
