// Package graphql provides a tool that posts a query to a GraphQL endpoint
// and returns the raw JSON response as text.
//
// The endpoint URL and bearer token are taken from the request, falling back
// to the GRAPHQL_ENDPOINT and GRAPHQL_AUTH_TOKEN environment variables.
// Transport and configuration failures are reported as error text in the
// result, not as errors, so the calling agent can react to them.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"reflect"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/meadowhq/metaagent/chatmodel"
	"github.com/meadowhq/metaagent/pkg/llmutils"
	"github.com/meadowhq/metaagent/pkg/schema"
	"github.com/meadowhq/metaagent/tools"
	mcp "github.com/metoro-io/mcp-golang"
)

const ToolName = "call_graphql_endpoint"

// DefaultTimeout bounds the endpoint call.
const DefaultTimeout = 30 * time.Second

// QueryRequest represents the tool input.
type QueryRequest struct {
	Query     string         `json:"graphql_query" yaml:"graphql_query" jsonschema:"title=graphql_query,description=The GraphQL query to execute."`
	Variables map[string]any `json:"graphql_vars,omitempty" yaml:"graphql_vars,omitempty" jsonschema:"title=graphql_vars,description=The variables for the GraphQL query."`
	Endpoint  string         `json:"graphql_endpoint,omitempty" yaml:"graphql_endpoint,omitempty" jsonschema:"title=graphql_endpoint,description=The GraphQL endpoint URL. Defaults to the GRAPHQL_ENDPOINT environment variable."`
	AuthToken string         `json:"graphql_auth_token,omitempty" yaml:"graphql_auth_token,omitempty" jsonschema:"title=graphql_auth_token,description=The bearer token for the endpoint. Defaults to the GRAPHQL_AUTH_TOKEN environment variable."`
}

// QueryResult represents the tool output: a single text payload holding
// either the raw JSON response or an error description.
type QueryResult struct {
	Text string `json:"text" yaml:"text" jsonschema:"title=text,description=The raw JSON response or an error description."`
}

// GetContent gets the content of the message for the chat history
func (r *QueryResult) GetContent() string {
	return r.Text
}

func (r *QueryResult) String() string {
	return r.Text
}

// Tool posts GraphQL queries over HTTP.
type Tool struct {
	name        string
	description string
	funcParams  any

	httpClient *http.Client
}

var (
	_ tools.Tool[QueryRequest, QueryResult] = (*Tool)(nil)
	_ tools.MCPTool[QueryRequest]           = (*Tool)(nil)
)

func New() (*Tool, error) {
	sc, err := schema.New(reflect.TypeOf(QueryRequest{}))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create schema")
	}
	tool := &Tool{
		name:        ToolName,
		description: "Call a GraphQL endpoint",
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		funcParams:  sc.Parameters,
	}
	return tool, nil
}

func (t *Tool) WithHTTPClient(client *http.Client) *Tool {
	t.httpClient = client
	return t
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

func (t *Tool) Run(ctx context.Context, req *QueryRequest) (*QueryResult, error) {
	endpoint := values.StringsCoalesce(req.Endpoint, os.Getenv("GRAPHQL_ENDPOINT"))
	if endpoint == "" {
		return &QueryResult{Text: "Error: GraphQL endpoint not provided"}, nil
	}
	token := values.StringsCoalesce(req.AuthToken, os.Getenv("GRAPHQL_AUTH_TOKEN"))

	vars := req.Variables
	if vars == nil {
		vars = map[string]any{}
	}
	body, err := json.Marshal(map[string]any{
		"query":     req.Query,
		"variables": vars,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to marshal request")
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create request")
	}
	r.Header.Set("Content-Type", "application/json")
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.httpClient.Do(r)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to call endpoint")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to read response")
	}
	if resp.StatusCode != http.StatusOK {
		return &QueryResult{
			Text: fmt.Sprintf("Error: %d - %s", resp.StatusCode, string(respBody)),
		}, nil
	}
	return &QueryResult{Text: string(respBody)}, nil
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	var req QueryRequest
	if err := json.Unmarshal(llmutils.CleanJSON([]byte(input)), &req); err != nil {
		return "", errors.WithStack(chatmodel.ErrFailedUnmarshalInput)
	}
	out, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

func (t *Tool) RunMCP(ctx context.Context, req *QueryRequest) (*mcp.ToolResponse, error) {
	out, err := t.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResponse(mcp.NewTextContent(out.Text)), nil
}

func (t *Tool) RegisterMCP(registrator tools.McpServerRegistrator) error {
	return registrator.RegisterTool(t.name, t.description, t.RunMCP)
}
