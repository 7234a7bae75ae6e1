package store_test

import (
	"context"
	"testing"

	"github.com/meadowhq/metaagent/chatmodel"
	"github.com/meadowhq/metaagent/pkg/llms"
	"github.com/meadowhq/metaagent/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MemoryStore(t *testing.T) {
	st := store.NewMemoryStore()

	msg1 := llms.MessageFromTextParts(llms.RoleHuman, "Hello")
	msg2 := llms.MessageFromTextParts(llms.RoleAI, "Hi there!")

	ctx := context.Background()
	expErr := "context does not have chat ID"
	assert.EqualError(t, st.Reset(ctx), expErr)
	assert.EqualError(t, st.Add(ctx, msg1), expErr)
	assert.Empty(t, st.Messages(ctx))

	chatCtx := chatmodel.NewChatContext("chat1", map[string]string{"key": "value"})
	ctx = chatmodel.WithChatContext(ctx, chatCtx)

	require.NoError(t, st.Add(ctx, msg1, msg2))

	messages := st.Messages(ctx)
	require.Equal(t, 2, len(messages))
	assert.Equal(t, llms.RoleHuman, messages[0].Role)
	assert.Equal(t, llms.RoleAI, messages[1].Role)

	// other chats do not see the messages
	otherCtx := chatmodel.WithChatContext(context.Background(), chatmodel.NewChatContext("chat2", nil))
	assert.Empty(t, st.Messages(otherCtx))

	require.NoError(t, st.Reset(ctx))
	assert.Empty(t, st.Messages(ctx))
}
