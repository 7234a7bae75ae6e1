package tools_test

import (
	"context"
	"testing"

	"github.com/meadowhq/metaagent/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct {
	name string
	desc string
}

func (t *stubTool) Name() string        { return t.name }
func (t *stubTool) Description() string { return t.desc }
func (t *stubTool) Parameters() any     { return nil }
func (t *stubTool) Call(_ context.Context, input string) (string, error) {
	return input, nil
}

func TestNames(t *testing.T) {
	t.Parallel()

	assert.Empty(t, tools.Names())
	names := tools.Names(
		&stubTool{name: "first"},
		&stubTool{name: "second"},
	)
	assert.Equal(t, []string{"first", "second"}, names)
}

func TestGetDescriptions(t *testing.T) {
	t.Parallel()

	out := tools.GetDescriptions(
		&stubTool{name: "lookup", desc: "Look things up"},
		&stubTool{name: "rank", desc: "Rank results"},
	)
	require.Contains(t, out, "```json")
	assert.Contains(t, out, `"name": "lookup"`)
	assert.Contains(t, out, `"description": "Rank results"`)
}
