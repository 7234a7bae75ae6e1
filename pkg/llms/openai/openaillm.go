package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/meadowhq/metaagent/pkg/llms"
	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

var (
	ErrEmptyResponse          = errors.New("openai: no response")
	ErrMissingToken           = errors.New("openai: missing API key, set it in the OPENAI_API_KEY environment variable")
	ErrUnsupportedMessageType = errors.New("openai: unsupported message type")
)

// LLM is an OpenAI chat-completions model.
type LLM struct {
	Client  *openaisdk.Client
	Options *Options
}

var _ llms.Model = (*LLM)(nil)

// New creates a new OpenAI LLM client using the official OpenAI SDK.
func New(opts ...Option) (*LLM, error) {
	options := &Options{
		Token:      os.Getenv(TokenEnvVarName),
		HttpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.Model == "" {
		return nil, errors.New("openai: model is required")
	}
	if len(options.Token) == 0 {
		return nil, ErrMissingToken
	}

	sdkOpts := []option.RequestOption{
		option.WithAPIKey(options.Token),
	}
	if options.BaseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(options.BaseURL))
	}
	if options.OrgID != "" {
		sdkOpts = append(sdkOpts, option.WithOrganization(options.OrgID))
	}
	if options.HttpClient != nil {
		sdkOpts = append(sdkOpts, option.WithHTTPClient(options.HttpClient))
	}

	client := openaisdk.NewClient(sdkOpts...)
	return &LLM{
		Client:  &client,
		Options: options,
	}, nil
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.Options.Model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderOpenAI
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{
		Model: o.Options.Model,
	}
	for _, opt := range options {
		opt(&opts)
	}

	sdkMessages, err := ProcessMessages(messages)
	if err != nil {
		return nil, errors.Wrap(err, "openai: failed to process messages")
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(opts.Model),
		Messages: sdkMessages,
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		params.Temperature = openaisdk.Float(opts.Temperature)
	}
	if opts.TopP > 0 {
		params.TopP = openaisdk.Float(opts.TopP)
	}
	if tools, err := ToTools(opts.Tools); err != nil {
		return nil, err
	} else if len(tools) > 0 {
		params.Tools = tools
	}

	result, err := o.Client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "openai: failed to create chat completion")
	}
	if len(result.Choices) == 0 {
		return nil, errors.WithStack(ErrEmptyResponse)
	}

	choices := make([]*llms.ContentChoice, len(result.Choices))
	for i, choice := range result.Choices {
		c := &llms.ContentChoice{
			Content:    choice.Message.Content,
			StopReason: string(choice.FinishReason),
			GenerationInfo: map[string]any{
				"InputTokens":  result.Usage.PromptTokens,
				"OutputTokens": result.Usage.CompletionTokens,
				"TotalTokens":  result.Usage.TotalTokens,
				"ID":           result.ID,
				"Index":        i,
			},
		}
		for _, tc := range choice.Message.ToolCalls {
			c.ToolCalls = append(c.ToolCalls, llms.ToolCall{
				ID:   tc.ID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		choices[i] = c
	}

	return &llms.ContentResponse{
		Choices: choices,
	}, nil
}

// ToTools converts tool definitions to OpenAI SDK tool parameters.
func ToTools(tools []llms.Tool) ([]openaisdk.ChatCompletionToolUnionParam, error) {
	if len(tools) == 0 {
		return nil, nil
	}

	sdkTools := make([]openaisdk.ChatCompletionToolUnionParam, len(tools))
	for i, tool := range tools {
		def := shared.FunctionDefinitionParam{
			Name:        tool.Function.Name,
			Description: openaisdk.String(tool.Function.Description),
		}
		if tool.Function.Parameters != nil {
			bs, err := json.Marshal(tool.Function.Parameters)
			if err != nil {
				return nil, errors.Wrap(err, "openai: failed to marshal tool parameters")
			}
			var params shared.FunctionParameters
			if err := json.Unmarshal(bs, &params); err != nil {
				return nil, errors.Wrap(err, "openai: failed to convert tool parameters")
			}
			def.Parameters = params
		}
		sdkTools[i] = openaisdk.ChatCompletionFunctionTool(def)
	}
	return sdkTools, nil
}

// ProcessMessages converts messages to OpenAI SDK message parameters.
func ProcessMessages(messages []llms.Message) ([]openaisdk.ChatCompletionMessageParamUnion, error) {
	chatMessages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		if len(msg.Parts) == 0 {
			continue
		}
		switch msg.Role {
		case llms.RoleSystem:
			chatMessages = append(chatMessages, openaisdk.SystemMessage(partsText(msg)))
		case llms.RoleHuman:
			chatMessages = append(chatMessages, openaisdk.UserMessage(partsText(msg)))
		case llms.RoleAI:
			chatMessage, err := handleAIMessage(msg)
			if err != nil {
				return nil, err
			}
			chatMessages = append(chatMessages, chatMessage)
		case llms.RoleTool:
			for _, part := range msg.Parts {
				resp, ok := part.(llms.ToolCallResponse)
				if !ok {
					return nil, errors.Errorf("openai: unsupported tool message part type: %T", part)
				}
				chatMessages = append(chatMessages, openaisdk.ToolMessage(resp.Content, resp.ToolCallID))
			}
		default:
			return nil, errors.WithMessagef(ErrUnsupportedMessageType, "openai: %v", msg.Role)
		}
	}
	return chatMessages, nil
}

func partsText(msg llms.Message) string {
	var text string
	for _, part := range msg.Parts {
		if p, ok := part.(llms.TextContent); ok {
			text += p.Text
		}
	}
	return text
}

func handleAIMessage(msg llms.Message) (openaisdk.ChatCompletionMessageParamUnion, error) {
	assistant := openaisdk.ChatCompletionAssistantMessageParam{}

	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			assistant.Content.OfString = openaisdk.String(p.Text)
		case llms.ToolCall:
			assistant.ToolCalls = append(assistant.ToolCalls, openaisdk.ChatCompletionMessageToolCallUnionParam{
				OfFunction: &openaisdk.ChatCompletionMessageFunctionToolCallParam{
					ID: p.ID,
					Function: openaisdk.ChatCompletionMessageFunctionToolCallFunctionParam{
						Name:      p.FunctionCall.Name,
						Arguments: p.FunctionCall.Arguments,
					},
				},
			})
		default:
			return openaisdk.ChatCompletionMessageParamUnion{}, errors.Errorf("openai: unsupported AI message part type: %T", part)
		}
	}

	return openaisdk.ChatCompletionMessageParamUnion{OfAssistant: &assistant}, nil
}
