package llmfactory

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers" validate:"dive"`
	// DefaultProvider specifies the default provider to use
	DefaultProvider string `json:"default_provider" yaml:"default_provider"`
}

// ProviderConfig describes a single model provider.
type ProviderConfig struct {
	Name string `json:"name" yaml:"name" validate:"required"`
	// APIType specifies the type of API to use:
	// ANTHROPIC|BEDROCK|OPENAI
	APIType string `json:"api_type" yaml:"api_type" validate:"required,oneof=ANTHROPIC BEDROCK OPENAI"`
	Token   string `json:"token,omitempty" yaml:"token,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// OrgID specifies which organization's quota and billing should be used when making API requests.
	OrgID string `json:"org_id,omitempty" yaml:"org_id,omitempty"`
	// Region is the AWS region for the BEDROCK provider.
	Region          string   `json:"region,omitempty" yaml:"region,omitempty"`
	DefaultModel    string   `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	AvailableModels []string `json:"available_models,omitempty" yaml:"available_models,omitempty"`
}

func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if slices.Contains(c.AvailableModels, model) {
			return model
		}
	}
	return c.DefaultModel
}

// LoadConfig from file
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, errors.WithMessage(err, "invalid configuration")
	}
	return cfg, nil
}
