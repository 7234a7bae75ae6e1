// Package describe provides a tool that builds a short templated
// description of content, truncated to a requested length.
package describe

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/meadowhq/metaagent/chatmodel"
	"github.com/meadowhq/metaagent/pkg/llmutils"
	"github.com/meadowhq/metaagent/pkg/schema"
	"github.com/meadowhq/metaagent/tools"
	mcp "github.com/metoro-io/mcp-golang"
)

const ToolName = "generate_description"

const (
	// DefaultMaxLength is used when the request does not set a limit.
	DefaultMaxLength = 400
	// contentPreviewLen is how much of the content the template quotes.
	contentPreviewLen = 100
)

// DescribeRequest represents the tool input.
type DescribeRequest struct {
	Content   string `json:"content" yaml:"content" jsonschema:"title=content,description=The content to describe."`
	Context   string `json:"context,omitempty" yaml:"context,omitempty" jsonschema:"title=context,description=Additional context for the description."`
	MaxLength int    `json:"max_length,omitempty" yaml:"max_length,omitempty" jsonschema:"title=max_length,description=The maximum length of the description in characters. Defaults to 400."`
}

// DescribeResult represents the tool output.
type DescribeResult struct {
	Description string `json:"description" yaml:"description" jsonschema:"title=description,description=The generated description."`
}

// GetContent gets the content of the message for the chat history
func (r *DescribeResult) GetContent() string {
	return r.Description
}

func (r *DescribeResult) String() string {
	return r.Description
}

// Tool builds templated descriptions.
type Tool struct {
	name        string
	description string
	funcParams  any
}

var (
	_ tools.Tool[DescribeRequest, DescribeResult] = (*Tool)(nil)
	_ tools.MCPTool[DescribeRequest]              = (*Tool)(nil)
)

func New() (*Tool, error) {
	sc, err := schema.New(reflect.TypeOf(DescribeRequest{}))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create schema")
	}
	tool := &Tool{
		name:        ToolName,
		description: "Generate a description from content",
		funcParams:  sc.Parameters,
	}
	return tool, nil
}

func (t *Tool) Name() string {
	return t.name
}

func (t *Tool) Description() string {
	return t.description
}

func (t *Tool) Parameters() any {
	return t.funcParams
}

// Run builds "Analysis of content [in context of <context>]: <preview>..."
// and truncates it to MaxLength characters, replacing the final three
// characters with "..." when truncation occurs. Lengths are counted in
// runes so multi-byte text is not cut mid-character.
func (t *Tool) Run(ctx context.Context, req *DescribeRequest) (*DescribeResult, error) {
	maxLength := values.NumbersCoalesce(req.MaxLength, DefaultMaxLength)

	description := "Analysis of content"
	if req.Context != "" {
		description += " in context of " + req.Context
	}
	content := []rune(req.Content)
	if len(content) > contentPreviewLen {
		content = content[:contentPreviewLen]
	}
	description += ": " + string(content) + "..."

	if runes := []rune(description); len(runes) > maxLength {
		if maxLength > 3 {
			description = string(runes[:maxLength-3]) + "..."
		} else {
			description = string(runes[:maxLength])
		}
	}

	return &DescribeResult{Description: description}, nil
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	var req DescribeRequest
	if err := json.Unmarshal(llmutils.CleanJSON([]byte(input)), &req); err != nil {
		return "", errors.WithStack(chatmodel.ErrFailedUnmarshalInput)
	}
	out, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	return out.Description, nil
}

func (t *Tool) RunMCP(ctx context.Context, req *DescribeRequest) (*mcp.ToolResponse, error) {
	out, err := t.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResponse(mcp.NewTextContent(out.Description)), nil
}

func (t *Tool) RegisterMCP(registrator tools.McpServerRegistrator) error {
	return registrator.RegisterTool(t.name, t.description, t.RunMCP)
}
