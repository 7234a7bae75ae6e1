// Package agent runs tool-calling conversations against a language model.
// An Agent binds a model, a tool server and a configuration; each query
// opens a session that drives the model's tool-call loop and streams
// typed messages back to the caller.
package agent

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/invopop/jsonschema"
	"github.com/meadowhq/metaagent/chatmodel"
	"github.com/meadowhq/metaagent/pkg/llms"
	"github.com/meadowhq/metaagent/store"
	"github.com/meadowhq/metaagent/toolserver"
	"github.com/meadowhq/metaagent/tools"
)

var logger = xlog.NewPackageLogger("github.com/meadowhq/metaagent", "agent")

const (
	DefaultMaxRetries     = 3
	DefaultMaxToolCalls   = 20
	DefaultMaxMessages    = 100
	DefaultMaxContentSize = 1024 * 1024
)

// Config is an immutable descriptor for an Agent. It is constructed once
// and shared read-only by all queries issued through that Agent.
type Config struct {
	// Name identifies the agent in logs and metrics.
	Name string
	// SystemPrompt is prepended to every conversation when non-empty.
	SystemPrompt string
	// AllowedTools restricts the tools offered to the model to the listed
	// qualified names. Empty means all tools on the server are offered.
	AllowedTools []string
	// DisallowedTools removes the listed qualified names from the offered
	// set, after AllowedTools is applied.
	DisallowedTools []string

	// MaxToolCalls bounds the total tool executions per query.
	MaxToolCalls int
	// MaxMessages bounds the conversation length per query.
	MaxMessages int
	// MaxContentSize bounds the total request bytes per LLM call.
	MaxContentSize uint64

	// Store persists conversation history between queries when set.
	Store store.MessageStore
	// Callback observes the query lifecycle when set.
	Callback Callback
}

// Agent is a reusable binding of a model, a tool server and a Config.
// It is safe for concurrent use; each query runs in its own Session.
type Agent struct {
	llm    llms.Model
	server *toolserver.Server
	cfg    Config

	tools       []tools.ITool
	toolsByName map[string]tools.ITool
	toolNames   []string
	llmToolDefs []llms.Tool
}

// New creates an Agent and starts serving the tool server.
func New(llmModel llms.Model, server *toolserver.Server, cfg Config) (*Agent, error) {
	if llmModel == nil {
		return nil, errors.New("missing model")
	}
	if cfg.Name == "" {
		cfg.Name = "metaagent"
	}

	a := &Agent{
		llm:         llmModel,
		server:      server,
		cfg:         cfg,
		toolsByName: make(map[string]tools.ITool),
	}

	if server != nil {
		if err := server.Serve(); err != nil {
			return nil, errors.WithMessage(err, "failed to serve tools")
		}
		for _, tool := range server.Tools() {
			if !cfg.isToolAllowed(tool.Name()) {
				continue
			}
			a.addTool(tool)
		}
	}

	if len(a.llmToolDefs) > 0 && !llmModel.GetProviderType().Supports(llms.CapabilityFunctionCalling) {
		return nil, errors.Newf("agent %s: the LLM does not support function calling", cfg.Name)
	}
	return a, nil
}

func (c *Config) isToolAllowed(name string) bool {
	for _, disallowed := range c.DisallowedTools {
		if strings.EqualFold(name, disallowed) {
			return false
		}
	}
	if len(c.AllowedTools) == 0 {
		return true
	}
	for _, allowed := range c.AllowedTools {
		if strings.EqualFold(name, allowed) {
			return true
		}
	}
	return false
}

func (a *Agent) addTool(tool tools.ITool) {
	name := tool.Name()
	key := strings.ToLower(name)
	if a.toolsByName[key] != nil {
		return
	}
	a.toolsByName[key] = tool
	a.toolNames = append(a.toolNames, name)
	a.tools = append(a.tools, tool)
	params, _ := tool.Parameters().(*jsonschema.Schema)
	a.llmToolDefs = append(a.llmToolDefs, llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        name,
			Description: tool.Description(),
			Parameters:  params,
		},
	})
}

// Name returns the agent name.
func (a *Agent) Name() string {
	return a.cfg.Name
}

// Tools returns the tools offered to the model, after the allow and
// disallow lists are applied.
func (a *Agent) Tools() []tools.ITool {
	return a.tools
}

// Open starts a session for a single conversation. The context gains a
// ChatContext if it does not carry one already, so stored history and
// logs correlate by chat ID.
func (a *Agent) Open(ctx context.Context) (context.Context, *Session, error) {
	if chatmodel.GetChatContext(ctx) == nil {
		ctx = chatmodel.WithChatContext(ctx, chatmodel.NewChatContext("", nil))
	}
	s := &Session{
		agent:  a,
		chatID: chatmodel.GetChatID(ctx),
	}
	logger.ContextKV(ctx, xlog.DEBUG,
		"agent", a.cfg.Name,
		"status", "session_opened",
		"chat_id", s.chatID,
	)
	return ctx, s, nil
}
