// Package metaagent provides a high level facade over the metadata agent:
// a language model bound to a GraphQL query tool, a keyword extraction
// tool and a description generation tool served over an in-process MCP
// server. Callers submit natural language queries and receive the
// aggregated final answer.
package metaagent

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/meadowhq/metaagent/agent"
	"github.com/meadowhq/metaagent/pkg/llms"
	"github.com/meadowhq/metaagent/pkg/llmutils"
	"github.com/meadowhq/metaagent/pkg/prompts"
	"github.com/meadowhq/metaagent/store"
	"github.com/meadowhq/metaagent/toolserver"
	"github.com/meadowhq/metaagent/tools/describe"
	"github.com/meadowhq/metaagent/tools/graphql"
	"github.com/meadowhq/metaagent/tools/keywords"
)

var logger = xlog.NewPackageLogger("github.com/meadowhq/metaagent", "metaagent")

const (
	// ServerName is the MCP server name the tools are registered under.
	ServerName = "metadata"
	// ServerVersion is the MCP server version.
	ServerVersion = "1.0.0"

	// DefaultSystemPrompt instructs the model on its role and tools.
	DefaultSystemPrompt = "You are a metadata assistant. Use the available tools to query data, extract keywords and generate descriptions."

	toolNudge = "\n\nPlease use the available tools (generate_keywords, generate_description) if they would help answer this query."
)

var (
	keywordsPrompt = prompts.MustNewPromptTemplate(
		"Please analyze this content and generate {{ max_keywords }} relevant keywords using the generate_keywords tool. Content: {{ content }}. Context: {{ context }}",
		[]string{"content", "context", "max_keywords"})

	descriptionPrompt = prompts.MustNewPromptTemplate(
		"Please analyze this content and generate a description (max {{ max_length }} chars) using the generate_description tool. Content: {{ content }}. Context: {{ context }}",
		[]string{"content", "context", "max_length"})
)

// Result is a single asynchronous query outcome.
type Result struct {
	Output string
	Err    error
}

type options struct {
	name            string
	systemPrompt    string
	allowedTools    []string
	disallowedTools []string
	maxToolCalls    int
	store           store.MessageStore
	callback        agent.Callback
}

// Option configures the facade agent.
type Option func(*options)

// WithName overrides the agent name used in logs and metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithSystemPrompt overrides the default system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(o *options) { o.systemPrompt = prompt }
}

// WithAllowedTools restricts the tools offered to the model to the
// listed qualified names.
func WithAllowedTools(names ...string) Option {
	return func(o *options) { o.allowedTools = names }
}

// WithDisallowedTools removes the listed qualified names from the
// offered set.
func WithDisallowedTools(names ...string) Option {
	return func(o *options) { o.disallowedTools = names }
}

// WithMaxToolCalls bounds the tool executions per query.
func WithMaxToolCalls(limit int) Option {
	return func(o *options) { o.maxToolCalls = limit }
}

// WithStore persists conversation history between queries.
func WithStore(s store.MessageStore) Option {
	return func(o *options) { o.store = s }
}

// WithCallback observes the query lifecycle.
func WithCallback(cb agent.Callback) Option {
	return func(o *options) { o.callback = cb }
}

// Agent is the metadata query facade. It is safe for concurrent use;
// every query runs in its own session.
type Agent struct {
	agent  *agent.Agent
	server *toolserver.Server
}

// New creates the facade over the given model, registering the GraphQL,
// keyword and description tools on an in-process MCP server.
func New(model llms.Model, opts ...Option) (*Agent, error) {
	o := &options{
		name:         "metaagent",
		systemPrompt: DefaultSystemPrompt,
	}
	for _, opt := range opts {
		opt(o)
	}

	gq, err := graphql.New()
	if err != nil {
		return nil, err
	}
	kw, err := keywords.New()
	if err != nil {
		return nil, err
	}
	desc, err := describe.New()
	if err != nil {
		return nil, err
	}

	srv, err := toolserver.New(ServerName, ServerVersion, gq, kw, desc)
	if err != nil {
		return nil, err
	}

	ag, err := agent.New(model, srv, agent.Config{
		Name:            o.name,
		SystemPrompt:    o.systemPrompt,
		AllowedTools:    o.allowedTools,
		DisallowedTools: o.disallowedTools,
		MaxToolCalls:    o.maxToolCalls,
		Store:           o.store,
		Callback:        o.callback,
	})
	if err != nil {
		return nil, err
	}

	return &Agent{
		agent:  ag,
		server: srv,
	}, nil
}

// Tools returns the qualified names of the tools offered to the model.
func (a *Agent) Tools() []string {
	list := a.agent.Tools()
	names := make([]string, 0, len(list))
	for _, tool := range list {
		names = append(names, tool.Name())
	}
	return names
}

// Query submits a prompt with optional JSON context and returns the
// aggregated final answer. A non-empty contextJSON that fails to parse
// is returned as an error without calling the model.
func (a *Agent) Query(ctx context.Context, prompt, contextJSON string) (string, error) {
	enhanced, err := enhancePrompt(prompt, contextJSON)
	if err != nil {
		return "", err
	}

	ctx, sess, err := a.agent.Open(ctx)
	if err != nil {
		return "", err
	}
	defer sess.Close()

	stream, err := sess.Query(ctx, enhanced)
	if err != nil {
		return "", err
	}

	result := aggregate(ctx, stream)
	if err := stream.Err(); err != nil {
		return "", err
	}
	return result, nil
}

// QueryAsync runs Query in a goroutine and delivers a single Result on
// the returned channel before closing it.
func (a *Agent) QueryAsync(ctx context.Context, prompt, contextJSON string) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		out, err := a.Query(ctx, prompt, contextJSON)
		ch <- Result{Output: out, Err: err}
	}()
	return ch
}

// AskForKeywords asks the agent to extract keywords from the content,
// steering it towards the generate_keywords tool. A non-positive
// maxKeywords falls back to the tool default.
func (a *Agent) AskForKeywords(ctx context.Context, content, contextStr string, maxKeywords int) (string, error) {
	if maxKeywords <= 0 {
		maxKeywords = keywords.DefaultMaxKeywords
	}
	prompt, err := keywordsPrompt.Format(map[string]any{
		"content":      content,
		"context":      contextStr,
		"max_keywords": maxKeywords,
	})
	if err != nil {
		return "", err
	}
	return a.Query(ctx, prompt, "")
}

// AskForDescription asks the agent to describe the content, steering it
// towards the generate_description tool. A non-positive maxLength falls
// back to the tool default.
func (a *Agent) AskForDescription(ctx context.Context, content, contextStr string, maxLength int) (string, error) {
	if maxLength <= 0 {
		maxLength = describe.DefaultMaxLength
	}
	prompt, err := descriptionPrompt.Format(map[string]any{
		"content":    content,
		"context":    contextStr,
		"max_length": maxLength,
	})
	if err != nil {
		return "", err
	}
	return a.Query(ctx, prompt, "")
}

// enhancePrompt embeds the parsed context as an indented JSON block and
// appends the tool usage hint. Both are added only when the context
// parses to a non-empty value; template prompts and plain queries go to
// the model unchanged.
func enhancePrompt(prompt, contextJSON string) (string, error) {
	if contextJSON == "" {
		return prompt, nil
	}
	var data any
	if err := json.Unmarshal([]byte(contextJSON), &data); err != nil {
		return "", errors.WithMessage(err, "invalid context JSON")
	}
	if isEmptyContext(data) {
		return prompt, nil
	}
	return prompt + "\n\nContext data: " + llmutils.ToJSONIndent(data) + toolNudge, nil
}

func isEmptyContext(data any) bool {
	switch v := data.(type) {
	case nil:
		return true
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	}
	return false
}
