package openai

import (
	"net/http"
)

const (
	// TokenEnvVarName is the environment variable the API key is read from.
	TokenEnvVarName = "OPENAI_API_KEY"
)

// Options is a set of options for the OpenAI client.
type Options struct {
	Token      string
	Model      string
	BaseURL    string
	OrgID      string
	HttpClient *http.Client
}

// Option is a function that configures Options.
type Option func(*Options)

// WithToken passes the OpenAI API token. Defaults to the
// OPENAI_API_KEY environment variable.
func WithToken(token string) Option {
	return func(opts *Options) {
		opts.Token = token
	}
}

// WithModel passes the OpenAI model to use.
func WithModel(model string) Option {
	return func(opts *Options) {
		opts.Model = model
	}
}

// WithBaseURL passes the OpenAI base URL. Defaults to the public API.
func WithBaseURL(baseURL string) Option {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

// WithOrganization sets which organization's quota and billing should be
// used when making API requests.
func WithOrganization(orgID string) Option {
	return func(opts *Options) {
		opts.OrgID = orgID
	}
}

// WithHTTPClient allows setting a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *Options) {
		opts.HttpClient = client
	}
}
