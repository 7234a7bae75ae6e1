// Package keywords provides a tool that extracts the most frequent word
// tokens from content and optional context.
package keywords

import (
	"context"
	"encoding/json"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/meadowhq/metaagent/chatmodel"
	"github.com/meadowhq/metaagent/pkg/llmutils"
	"github.com/meadowhq/metaagent/pkg/schema"
	"github.com/meadowhq/metaagent/tools"
	mcp "github.com/metoro-io/mcp-golang"
)

const ToolName = "generate_keywords"

// DefaultMaxKeywords is used when the request does not set a limit.
const DefaultMaxKeywords = 10

var reWord = regexp.MustCompile(`\w+`)

// ExtractRequest represents the tool input.
type ExtractRequest struct {
	Content     string `json:"content" yaml:"content" jsonschema:"title=content,description=The content to extract keywords from."`
	Context     string `json:"context,omitempty" yaml:"context,omitempty" jsonschema:"title=context,description=Additional context to include in the extraction."`
	MaxKeywords int    `json:"max_keywords,omitempty" yaml:"max_keywords,omitempty" jsonschema:"title=max_keywords,description=The maximum number of keywords to return. Defaults to 10."`
}

// ExtractResult represents the tool output.
type ExtractResult struct {
	Keywords string `json:"keywords" yaml:"keywords" jsonschema:"title=keywords,description=Comma-separated keywords ordered by descending frequency."`
}

// GetContent gets the content of the message for the chat history
func (r *ExtractResult) GetContent() string {
	return r.Keywords
}

func (r *ExtractResult) String() string {
	return r.Keywords
}

// Tool extracts keywords by word frequency.
type Tool struct {
	name        string
	description string
	funcParams  any
}

var (
	_ tools.Tool[ExtractRequest, ExtractResult] = (*Tool)(nil)
	_ tools.MCPTool[ExtractRequest]             = (*Tool)(nil)
)

func New() (*Tool, error) {
	sc, err := schema.New(reflect.TypeOf(ExtractRequest{}))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create schema")
	}
	tool := &Tool{
		name:        ToolName,
		description: "Generate relevant keywords from content",
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

// Run tokenizes content and context into lowercase words, discards tokens
// of length 3 or less, counts frequency over the combined stream, and
// returns the top tokens ordered by descending frequency. Ties keep the
// order in which the tokens first appeared.
func (t *Tool) Run(ctx context.Context, req *ExtractRequest) (*ExtractResult, error) {
	maxKeywords := values.NumbersCoalesce(req.MaxKeywords, DefaultMaxKeywords)

	words := reWord.FindAllString(strings.ToLower(req.Content), -1)
	if req.Context != "" {
		words = append(words, reWord.FindAllString(strings.ToLower(req.Context), -1)...)
	}

	freq := map[string]int{}
	var order []string
	for _, word := range words {
		if len(word) <= 3 {
			continue
		}
		if _, seen := freq[word]; !seen {
			order = append(order, word)
		}
		freq[word]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})
	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}

	return &ExtractResult{Keywords: strings.Join(order, ", ")}, nil
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	var req ExtractRequest
	if err := json.Unmarshal(llmutils.CleanJSON([]byte(input)), &req); err != nil {
		return "", errors.WithStack(chatmodel.ErrFailedUnmarshalInput)
	}
	out, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	return out.Keywords, nil
}

func (t *Tool) RunMCP(ctx context.Context, req *ExtractRequest) (*mcp.ToolResponse, error) {
	out, err := t.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResponse(mcp.NewTextContent(out.Keywords)), nil
}

func (t *Tool) RegisterMCP(registrator tools.McpServerRegistrator) error {
	return registrator.RegisterTool(t.name, t.description, t.RunMCP)
}
