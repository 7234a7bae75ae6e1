package llms

import (
	"context"
)

// ProviderType is the type of provider.
type ProviderType string

const (
	// ProviderAnthropic is the Anthropic API provider.
	ProviderAnthropic ProviderType = "ANTHROPIC"
	// ProviderBedrock is the Anthropic-on-Bedrock provider.
	ProviderBedrock ProviderType = "BEDROCK"
	// ProviderOpenAI is the OpenAI provider.
	ProviderOpenAI ProviderType = "OPENAI"
)

// Model is the interface chat models implement.
type Model interface {
	// GetName returns the name of the configured model.
	GetName() string
	// GetProviderType returns the type of provider.
	GetProviderType() ProviderType
	// GenerateContent asks the model to generate content from a sequence of
	// messages. Tool definitions are passed via call options.
	GenerateContent(ctx context.Context, messages []Message, options ...CallOption) (*ContentResponse, error)
}

// Capability is a bitmask indicating supported features of an LLM provider.
type Capability uint64

const (
	// CapabilityText is basic text or chat generation.
	CapabilityText Capability = 1 << iota

	// CapabilityJSONResponse is structured JSON responses.
	CapabilityJSONResponse

	// CapabilityFunctionCalling is function/tool calling.
	CapabilityFunctionCalling
	// CapabilityMultiToolCalling is multiple tool calls in one turn.
	CapabilityMultiToolCalling

	// CapabilitySystemPrompt is system prompt support.
	CapabilitySystemPrompt
)

var providerCapabilities = map[ProviderType]Capability{
	ProviderAnthropic: CapabilityText |
		CapabilityJSONResponse |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt,

	ProviderBedrock: CapabilityText |
		CapabilityJSONResponse |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt,

	ProviderOpenAI: CapabilityText |
		CapabilityJSONResponse |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt,
}

// ProviderCapabilities returns the capability mask for a provider.
func ProviderCapabilities(pt ProviderType) Capability {
	return providerCapabilities[pt]
}

func (p ProviderType) Supports(cap Capability) bool {
	return ProviderCapabilities(p)&cap != 0
}
