package anthropic

import (
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
)

const (
	// TokenEnvVarName is the environment variable the API key is read from.
	TokenEnvVarName = "ANTHROPIC_API_KEY"
)

// Options is a set of options for the Anthropic client.
type Options struct {
	Token      string
	Model      string
	BaseURL    string
	HttpClient *http.Client

	// AnthropicBetaHeader adds the Beta header to support experimental features.
	AnthropicBetaHeader string

	// BedrockConfig routes requests via AWS Bedrock when set.
	BedrockConfig *aws.Config
}

// Option is a function that configures Options.
type Option func(*Options)

// WithToken passes the Anthropic API token. Defaults to the
// ANTHROPIC_API_KEY environment variable.
func WithToken(token string) Option {
	return func(opts *Options) {
		opts.Token = token
	}
}

// WithModel passes the Anthropic model to use.
func WithModel(model string) Option {
	return func(opts *Options) {
		opts.Model = model
	}
}

// WithBaseURL passes the Anthropic base URL. Defaults to the public API.
func WithBaseURL(baseURL string) Option {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

// WithHTTPClient allows setting a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *Options) {
		opts.HttpClient = client
	}
}

// WithAnthropicBetaHeader sets the anthropic-beta request header.
func WithAnthropicBetaHeader(header string) Option {
	return func(opts *Options) {
		opts.AnthropicBetaHeader = header
	}
}

// WithBedrock routes requests through AWS Bedrock using the given AWS config.
// No Anthropic API token is required in this mode.
func WithBedrock(cfg aws.Config) Option {
	return func(opts *Options) {
		opts.BedrockConfig = &cfg
	}
}
