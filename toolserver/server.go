// Package toolserver bundles MCP tools into a named in-process server.
// Tools are registered on an MCP server under their own names and exposed
// to agents under qualified names of the form mcp__<server>__<tool>, so
// allow-lists can distinguish tools from different servers.
package toolserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/meadowhq/metaagent/pkg/llmutils"
	"github.com/meadowhq/metaagent/tools"
	mcpgolang "github.com/metoro-io/mcp-golang"
	"github.com/metoro-io/mcp-golang/transport"
)

// Server hosts a set of MCP tools behind an in-process transport.
type Server struct {
	name      string
	version   string
	transport *Transport
	server    *mcpgolang.Server
	tools     []tools.IMCPTool
}

// New creates a tool server and registers the given tools on it.
// Serve must be called before the tools can be invoked.
func New(name, version string, list ...tools.IMCPTool) (*Server, error) {
	tr := NewTransport()
	srv := mcpgolang.NewServer(tr, mcpgolang.WithName(name), mcpgolang.WithVersion(version))
	for _, tool := range list {
		if err := tool.RegisterMCP(srv); err != nil {
			return nil, errors.WithMessagef(err, "failed to register tool: %s", tool.Name())
		}
	}
	return &Server{
		name:      name,
		version:   version,
		transport: tr,
		server:    srv,
		tools:     list,
	}, nil
}

func (s *Server) Name() string {
	return s.name
}

func (s *Server) Version() string {
	return s.version
}

// Serve starts handling requests on the in-process transport.
func (s *Server) Serve() error {
	return errors.WithStack(s.server.Serve())
}

// QualifiedName returns the agent-facing name of a tool hosted by this server.
func (s *Server) QualifiedName(tool string) string {
	return fmt.Sprintf("mcp__%s__%s", s.name, tool)
}

// Tools returns the hosted tools under their qualified names. Calls on the
// returned tools go through the MCP server, not directly to the handlers.
func (s *Server) Tools() []tools.ITool {
	list := make([]tools.ITool, 0, len(s.tools))
	for _, tool := range s.tools {
		list = append(list, &qualifiedTool{
			ITool: tool,
			name:  s.QualifiedName(tool.Name()),
			srv:   s,
		})
	}
	return list
}

type qualifiedTool struct {
	tools.ITool
	name string
	srv  *Server
}

func (t *qualifiedTool) Name() string {
	return t.name
}

func (t *qualifiedTool) Call(ctx context.Context, input string) (string, error) {
	return t.srv.CallTool(ctx, t.ITool.Name(), input)
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type toolResponse struct {
	Content []textContent `json:"content"`
}

// CallTool invokes a hosted tool by its unqualified name, passing the
// arguments as a JSON object, and returns the concatenated text content
// of the tool response.
func (s *Server) CallTool(ctx context.Context, name string, input string) (string, error) {
	args := llmutils.CleanJSON([]byte(input))
	if len(args) == 0 {
		args = []byte("{}")
	}
	params, err := json.Marshal(callToolParams{
		Name:      name,
		Arguments: json.RawMessage(args),
	})
	if err != nil {
		return "", errors.WithMessage(err, "failed to marshal params")
	}
	body, err := json.Marshal(transport.BaseJSONRPCRequest{
		Jsonrpc: "2.0",
		Method:  "tools/call",
		Params:  params,
	})
	if err != nil {
		return "", errors.WithMessage(err, "failed to marshal request")
	}

	resp, err := s.transport.HandleMessage(ctx, body)
	if err != nil {
		return "", errors.WithMessagef(err, "failed to call tool: %s", name)
	}
	if resp.JsonRpcError != nil {
		return "", errors.Newf("tool call failed: %s: %s", name, resp.JsonRpcError.Error.Message)
	}
	if resp.JsonRpcResponse == nil {
		return "", errors.Newf("tool call returned no response: %s", name)
	}

	var out toolResponse
	if err := json.Unmarshal(resp.JsonRpcResponse.Result, &out); err != nil {
		return "", errors.WithMessage(err, "failed to parse tool response")
	}
	var text string
	for _, c := range out.Content {
		if c.Type == "text" {
			text += c.Text
		}
	}
	return text, nil
}
