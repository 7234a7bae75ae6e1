package tools

import (
	"context"

	"github.com/meadowhq/metaagent/pkg/llmutils"
	mcp "github.com/metoro-io/mcp-golang"
)

// ITool is a callable capability offered to the model. Implementations
// parse their input from the model-provided JSON string and return plain
// text the model can read.
type ITool interface {
	// Name returns the tool name the model calls it by.
	Name() string
	// Description is included in the prompt; keep it short.
	Description() string
	// Parameters returns the JSON schema of the tool input.
	Parameters() any
	// Call executes the tool with raw JSON input. Input that does not
	// match the schema is reported with chatmodel.ErrFailedUnmarshalInput.
	Call(ctx context.Context, input string) (string, error)
}

// Tool is the typed variant of ITool; Call unmarshals into I and
// delegates to Run.
type Tool[I any, O any] interface {
	ITool
	Run(ctx context.Context, req *I) (*O, error)
}

// McpServerRegistrator registers tool handlers on an MCP server.
// *mcpgolang.Server satisfies it.
type McpServerRegistrator interface {
	RegisterTool(name string, description string, handler any) error
}

// IMCPTool is a tool that can attach itself to an MCP server.
type IMCPTool interface {
	ITool
	RegisterMCP(registrator McpServerRegistrator) error
}

// MCPTool is the typed MCP variant; RunMCP is the handler passed to
// RegisterTool.
type MCPTool[I any] interface {
	IMCPTool
	RunMCP(ctx context.Context, req *I) (*mcp.ToolResponse, error)
}

// Callback observes tool execution.
type Callback interface {
	OnToolStart(ctx context.Context, tool ITool, input string)
	OnToolEnd(ctx context.Context, tool ITool, input string, output string)
	OnToolError(ctx context.Context, tool ITool, input string, err error)
}

// Names returns the tool names in order.
func Names(list ...ITool) []string {
	names := make([]string, 0, len(list))
	for _, tool := range list {
		names = append(names, tool.Name())
	}
	return names
}

// GetDescriptions renders the tools as a fenced JSON block suitable for
// embedding in a prompt.
func GetDescriptions(list ...ITool) string {
	type entry struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	entries := make([]entry, 0, len(list))
	for _, tool := range list {
		entries = append(entries, entry{
			Name:        tool.Name(),
			Description: tool.Description(),
		})
	}
	return llmutils.BackticksJSON(llmutils.ToJSONIndent(map[string]any{
		"tools": entries,
	}))
}
