package prompts_test

import (
	"testing"

	"github.com/meadowhq/metaagent/pkg/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptTemplate(t *testing.T) {
	t.Parallel()

	tpl, err := prompts.NewPromptTemplate(
		"Summarize {{ content }} in {{ max_words }} words.",
		[]string{"content", "max_words"})
	require.NoError(t, err)
	assert.Equal(t, []string{"content", "max_words"}, tpl.GetInputVariables())

	out, err := tpl.Format(map[string]any{
		"content":   "the report",
		"max_words": 20,
	})
	require.NoError(t, err)
	assert.Equal(t, "Summarize the report in 20 words.", out)

	_, err = tpl.Format(map[string]any{"content": "the report"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing prompt input variable: max_words")
}

func TestNewPromptTemplateInvalid(t *testing.T) {
	t.Parallel()

	_, err := prompts.NewPromptTemplate("{{ unclosed", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unbalanced {{ }} delimiters")

	_, err = prompts.NewPromptTemplate("{% if x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unbalanced {% %} delimiters")

	assert.Panics(t, func() {
		prompts.MustNewPromptTemplate("{{ unclosed", nil)
	})
}
