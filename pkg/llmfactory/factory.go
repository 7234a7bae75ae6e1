package llmfactory

import (
	"context"
	"os"
	"slices"
	"strings"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/meadowhq/metaagent/pkg/llms"
	"github.com/meadowhq/metaagent/pkg/llms/anthropic"
	"github.com/meadowhq/metaagent/pkg/llms/openai"
)

var logger = xlog.NewPackageLogger("github.com/meadowhq/metaagent", "llmfactory")

const (
	// DefaultAnthropicModel is used when a provider does not name one.
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	// DefaultOpenAIModel is used when a provider does not name one.
	DefaultOpenAIModel = "gpt-4o"
	// DefaultAWSRegion is used for Bedrock when AWS_REGION is not set.
	DefaultAWSRegion = "us-east-1"
)

// NewLLM is a wrapper for CreateLLM to allow for overriding the default implementation.
var NewLLM = CreateLLM

// Factory is the interface for creating and managing LLM models.
type Factory interface {
	// DefaultModel returns the default LLM model.
	DefaultModel() (llms.Model, error)
	// ModelByType returns an LLM model by its type, e.g.
	// ANTHROPIC, BEDROCK, OPENAI
	ModelByType(providerType string) (llms.Model, error)
	// ModelByName returns an LLM model by its name,
	// if the model is not found, it will return the default model.
	ModelByName(preferredModels ...string) (llms.Model, error)
}

// Load returns a factory from a configuration file
func Load(location string) (Factory, error) {
	cfg, err := LoadConfig(location)
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}

// FromEnv builds a factory from environment variables. With USE_BEDROCK=1
// the Anthropic models are served through AWS Bedrock in AWS_REGION,
// otherwise the Anthropic API is used with ANTHROPIC_API_KEY. An OPENAI
// provider is added when OPENAI_API_KEY is set.
func FromEnv() Factory {
	cfg := &Config{}

	if os.Getenv("USE_BEDROCK") == "1" {
		region := values.StringsCoalesce(os.Getenv("AWS_REGION"), DefaultAWSRegion)
		logger.KV(xlog.INFO, "status", "configured_bedrock", "region", region)
		cfg.Providers = append(cfg.Providers, &ProviderConfig{
			Name:         "bedrock",
			APIType:      "BEDROCK",
			Region:       region,
			DefaultModel: DefaultAnthropicModel,
		})
	} else if token := os.Getenv(anthropic.TokenEnvVarName); token != "" {
		logger.KV(xlog.INFO, "status", "configured_anthropic")
		cfg.Providers = append(cfg.Providers, &ProviderConfig{
			Name:         "anthropic",
			APIType:      "ANTHROPIC",
			Token:        token,
			DefaultModel: DefaultAnthropicModel,
		})
	}

	if token := os.Getenv(openai.TokenEnvVarName); token != "" {
		cfg.Providers = append(cfg.Providers, &ProviderConfig{
			Name:         "openai",
			APIType:      "OPENAI",
			Token:        token,
			DefaultModel: DefaultOpenAIModel,
		})
	}

	return New(cfg)
}

type factory struct {
	cfg *Config

	defaultProvider *ProviderConfig
	byType          map[string]llms.Model
	byName          map[string]llms.Model
	lock            sync.Mutex
}

// New creates a new LLM factory
func New(cfg *Config) Factory {
	f := &factory{
		cfg:    cfg,
		byType: make(map[string]llms.Model),
		byName: make(map[string]llms.Model),
	}

	if cfg.DefaultProvider != "" {
		for _, provider := range cfg.Providers {
			if provider.Name == cfg.DefaultProvider {
				f.defaultProvider = provider
				break
			}
		}
	}
	if f.defaultProvider == nil && len(f.cfg.Providers) > 0 {
		f.defaultProvider = f.cfg.Providers[0]
	}

	return f
}

func CreateLLM(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	provType := strings.ToUpper(cfg.APIType)
	switch provType {
	case "ANTHROPIC":
		return newAnthropic(cfg, preferredModels...)
	case "BEDROCK":
		return newBedrock(cfg, preferredModels...)
	case "OPENAI":
		return newOpenAI(cfg, preferredModels...)
	}
	return nil, errors.Errorf("unsupported provider type: %s", provType)
}

func newAnthropic(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	var opts []anthropic.Option
	model := values.StringsCoalesce(cfg.FindModel(preferredModels...), DefaultAnthropicModel)
	opts = append(opts, anthropic.WithModel(model))
	if cfg.Token != "" {
		opts = append(opts, anthropic.WithToken(cfg.Token))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return anthropic.New(opts...)
}

func newBedrock(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	region := values.StringsCoalesce(cfg.Region, os.Getenv("AWS_REGION"), DefaultAWSRegion)
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to load AWS config")
	}

	model := values.StringsCoalesce(cfg.FindModel(preferredModels...), DefaultAnthropicModel)
	return anthropic.New(
		anthropic.WithModel(model),
		anthropic.WithBedrock(awsCfg),
	)
}

func newOpenAI(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	var opts []openai.Option
	model := values.StringsCoalesce(cfg.FindModel(preferredModels...), DefaultOpenAIModel)
	opts = append(opts, openai.WithModel(model))
	if cfg.Token != "" {
		opts = append(opts, openai.WithToken(cfg.Token))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.OrgID != "" {
		opts = append(opts, openai.WithOrganization(cfg.OrgID))
	}
	return openai.New(opts...)
}

// DefaultModel returns the model of the default provider.
func (f *factory) DefaultModel() (llms.Model, error) {
	if len(f.cfg.Providers) == 0 || f.defaultProvider == nil {
		return nil, errors.New("no providers configured")
	}
	return NewLLM(f.defaultProvider, f.defaultProvider.DefaultModel)
}

func (f *factory) ModelByType(providerType string) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if client, ok := f.byType[providerType]; ok {
		return client, nil
	}

	for _, cfg := range f.cfg.Providers {
		if strings.EqualFold(cfg.APIType, providerType) {
			model, err := NewLLM(cfg)
			if err != nil {
				return nil, err
			}

			logger.KV(xlog.DEBUG,
				"status", "created_llm",
				"type", cfg.APIType,
				"name", cfg.Name)

			f.byType[providerType] = model
			return model, nil
		}
	}
	return nil, errors.Errorf("provider not found for type: %s", providerType)
}

func (f *factory) ModelByName(modelNames ...string) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, modelName := range modelNames {
		if client, ok := f.byName[modelName]; ok {
			return client, nil
		}

		for _, cfg := range f.cfg.Providers {
			if slices.Contains(cfg.AvailableModels, modelName) {
				model, err := NewLLM(cfg, modelNames...)
				if err != nil {
					logger.KV(xlog.ERROR,
						"reason", "NewLLM",
						"type", cfg.APIType,
						"models", modelNames,
					)
					continue
				}

				logger.KV(xlog.DEBUG,
					"status", "created_llm",
					"type", cfg.APIType,
					"name", cfg.Name)

				f.byName[modelName] = model
				return model, nil
			}
		}
	}
	return f.DefaultModel()
}
