// Package llmfactory provides configuration driven construction of LLM
// clients, with providers for the Anthropic API, AWS Bedrock and OpenAI.
package llmfactory
