package llmfactory_test

import (
	"testing"

	"github.com/meadowhq/metaagent/pkg/llmfactory"
	"github.com/meadowhq/metaagent/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	cfg, err := llmfactory.LoadConfig("testdata/llm.yaml")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.DefaultProvider)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "ANTHROPIC", cfg.Providers[0].APIType)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Providers[0].DefaultModel)
	assert.Equal(t, "OPENAI", cfg.Providers[1].APIType)
	assert.Equal(t, "org-meadow", cfg.Providers[1].OrgID)

	empty, err := llmfactory.LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, empty.Providers)

	_, err = llmfactory.LoadConfig("testdata/invalid.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")

	_, err = llmfactory.LoadConfig("testdata/missing.yaml")
	assert.Error(t, err)
}

func TestFindModel(t *testing.T) {
	t.Parallel()

	cfg := &llmfactory.ProviderConfig{
		DefaultModel:    "gpt-4o",
		AvailableModels: []string{"gpt-4o", "gpt-4o-mini"},
	}
	assert.Equal(t, "gpt-4o-mini", cfg.FindModel("gpt-4o-mini"))
	assert.Equal(t, "gpt-4o-mini", cfg.FindModel("gpt-5", "gpt-4o-mini"))
	assert.Equal(t, "gpt-4o", cfg.FindModel("gpt-5"))
	assert.Equal(t, "gpt-4o", cfg.FindModel())
}

func TestFactory(t *testing.T) {
	f, err := llmfactory.Load("testdata/llm.yaml")
	require.NoError(t, err)

	def, err := f.DefaultModel()
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderAnthropic, def.GetProviderType())
	assert.Equal(t, "claude-sonnet-4-20250514", def.GetName())

	oa, err := f.ModelByType("OPENAI")
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderOpenAI, oa.GetProviderType())

	// cached on second call
	oa2, err := f.ModelByType("OPENAI")
	require.NoError(t, err)
	assert.Same(t, oa, oa2)

	_, err = f.ModelByType("GEMINI")
	assert.EqualError(t, err, "provider not found for type: GEMINI")

	byName, err := f.ModelByName("gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", byName.GetName())

	// unknown model falls back to the default provider
	fallback, err := f.ModelByName("unknown-model")
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderAnthropic, fallback.GetProviderType())

	empty := llmfactory.New(&llmfactory.Config{})
	_, err = empty.DefaultModel()
	assert.EqualError(t, err, "no providers configured")
}

func TestCreateLLM(t *testing.T) {
	t.Parallel()

	_, err := llmfactory.CreateLLM(&llmfactory.ProviderConfig{
		Name:    "bad",
		APIType: "GEMINI",
	})
	assert.EqualError(t, err, "unsupported provider type: GEMINI")

	model, err := llmfactory.CreateLLM(&llmfactory.ProviderConfig{
		Name:    "openai",
		APIType: "OPENAI",
		Token:   "sk-test",
	})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", model.GetName())
}

func TestFromEnv(t *testing.T) {
	t.Setenv("USE_BEDROCK", "")
	t.Setenv("AWS_REGION", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env")
	t.Setenv("OPENAI_API_KEY", "sk-oa-env")

	f := llmfactory.FromEnv()
	def, err := f.DefaultModel()
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderAnthropic, def.GetProviderType())

	oa, err := f.ModelByType("OPENAI")
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderOpenAI, oa.GetProviderType())

	t.Setenv("ANTHROPIC_API_KEY", "")
	f = llmfactory.FromEnv()
	def, err = f.DefaultModel()
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderOpenAI, def.GetProviderType())
}
