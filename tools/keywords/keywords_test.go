package keywords_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/meadowhq/metaagent/chatmodel"
	"github.com/meadowhq/metaagent/pkg/llmutils"
	"github.com/meadowhq/metaagent/tools/keywords"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Tool(t *testing.T) {
	ctx := context.Background()

	tool, err := keywords.New()
	require.NoError(t, err)

	assert.Equal(t, keywords.ToolName, tool.Name())
	assert.Contains(t, tool.Description(), "keywords")
	assert.NotNil(t, tool.Parameters())

	_, err = tool.Call(ctx, "plain string")
	assert.True(t, errors.Is(err, chatmodel.ErrFailedUnmarshalInput))

	input := &keywords.ExtractRequest{
		Content: "Streaming pipelines move events. Streaming pipelines scale.",
	}
	resp, err := tool.Run(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "streaming, pipelines, move, events, scale", resp.GetContent())

	out, err := tool.Call(ctx, llmutils.ToJSON(input))
	require.NoError(t, err)
	assert.Equal(t, "streaming, pipelines, move, events, scale", out)
}

func Test_Tool_MaxKeywords(t *testing.T) {
	tool, err := keywords.New()
	require.NoError(t, err)

	resp, err := tool.Run(context.Background(), &keywords.ExtractRequest{
		Content:     "apple apple banana cherry",
		MaxKeywords: 2,
	})
	require.NoError(t, err)
	// apple wins on frequency; banana beats cherry on first appearance
	assert.Equal(t, "apple, banana", resp.Keywords)
}

func Test_Tool_ShortTokensDropped(t *testing.T) {
	tool, err := keywords.New()
	require.NoError(t, err)

	resp, err := tool.Run(context.Background(), &keywords.ExtractRequest{
		Content: "the cat sat on a mat with four words",
	})
	require.NoError(t, err)
	assert.Equal(t, "with, four, words", resp.Keywords)
}

func Test_Tool_ContextIncluded(t *testing.T) {
	tool, err := keywords.New()
	require.NoError(t, err)

	resp, err := tool.Run(context.Background(), &keywords.ExtractRequest{
		Content: "database schema",
		Context: "schema migrations",
	})
	require.NoError(t, err)
	assert.Equal(t, "schema, database, migrations", resp.Keywords)
}

func Test_Tool_Empty(t *testing.T) {
	tool, err := keywords.New()
	require.NoError(t, err)

	resp, err := tool.Run(context.Background(), &keywords.ExtractRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Keywords)
}
