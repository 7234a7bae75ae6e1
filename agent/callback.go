package agent

import (
	"context"
	"fmt"
	"io"

	"github.com/effective-security/xlog"
	"github.com/meadowhq/metaagent/tools"
)

// IAgent is the callback-facing view of an Agent.
type IAgent interface {
	Name() string
	Tools() []tools.ITool
}

// Callback observes the lifecycle of queries and tool calls.
type Callback interface {
	tools.Callback
	OnAgentStart(ctx context.Context, agent IAgent, input string)
	OnAgentEnd(ctx context.Context, agent IAgent, input string, result string)
	OnAgentError(ctx context.Context, agent IAgent, input string, err error)
	OnToolNotFound(ctx context.Context, agent IAgent, tool string)
}

// NoopCallback does nothing.
type NoopCallback struct{}

func NewNoopCallback() *NoopCallback {
	return &NoopCallback{}
}

var _ Callback = (*NoopCallback)(nil)

func (l *NoopCallback) OnAgentStart(ctx context.Context, agent IAgent, input string)              {}
func (l *NoopCallback) OnAgentEnd(ctx context.Context, agent IAgent, input string, result string) {}
func (l *NoopCallback) OnAgentError(ctx context.Context, agent IAgent, input string, err error)   {}
func (l *NoopCallback) OnToolNotFound(ctx context.Context, agent IAgent, tool string)             {}
func (l *NoopCallback) OnToolStart(ctx context.Context, tool tools.ITool, input string)           {}
func (l *NoopCallback) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string) {
}
func (l *NoopCallback) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {}

// PrinterCallback is a callback handler that prints to the Writer.
type PrinterCallback struct {
	Out io.Writer
}

func NewPrinterCallback(out io.Writer) *PrinterCallback {
	return &PrinterCallback{Out: out}
}

var _ Callback = (*PrinterCallback)(nil)

func (l *PrinterCallback) OnAgentStart(ctx context.Context, agent IAgent, input string) {
	fmt.Fprintf(l.Out, "Agent Start: %s\n", agent.Name())
	fmt.Fprintf(l.Out, "Input: %s\n", input)
}

func (l *PrinterCallback) OnAgentEnd(ctx context.Context, agent IAgent, input string, result string) {
	fmt.Fprintf(l.Out, "Agent End: %s\n", agent.Name())
	if result != "" {
		fmt.Fprintln(l.Out, result)
	}
}

func (l *PrinterCallback) OnAgentError(ctx context.Context, agent IAgent, input string, err error) {
	fmt.Fprintf(l.Out, "Agent Error: %s: %s\n", agent.Name(), err.Error())
}

func (l *PrinterCallback) OnToolNotFound(ctx context.Context, agent IAgent, tool string) {
	fmt.Fprintf(l.Out, "Tool Not Found: %s\n", tool)
}

func (l *PrinterCallback) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	fmt.Fprintf(l.Out, "Tool Start: %s\n", tool.Name())
	fmt.Fprintf(l.Out, "Input: %s\n", input)
}

func (l *PrinterCallback) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string) {
	fmt.Fprintf(l.Out, "Tool End: %s\n", tool.Name())
	fmt.Fprintf(l.Out, "Output: %s\n", output)
}

func (l *PrinterCallback) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	fmt.Fprintf(l.Out, "Tool Error: %s: %s\n", tool.Name(), err.Error())
}

// FanoutCallback dispatches every event to each of the wrapped callbacks.
type FanoutCallback struct {
	callbacks []Callback
}

func NewFanoutCallback(callbacks ...Callback) *FanoutCallback {
	return &FanoutCallback{callbacks: callbacks}
}

var _ Callback = (*FanoutCallback)(nil)

func (l *FanoutCallback) OnAgentStart(ctx context.Context, agent IAgent, input string) {
	for _, cb := range l.callbacks {
		cb.OnAgentStart(ctx, agent, input)
	}
}

func (l *FanoutCallback) OnAgentEnd(ctx context.Context, agent IAgent, input string, result string) {
	for _, cb := range l.callbacks {
		cb.OnAgentEnd(ctx, agent, input, result)
	}
}

func (l *FanoutCallback) OnAgentError(ctx context.Context, agent IAgent, input string, err error) {
	for _, cb := range l.callbacks {
		cb.OnAgentError(ctx, agent, input, err)
	}
}

func (l *FanoutCallback) OnToolNotFound(ctx context.Context, agent IAgent, tool string) {
	for _, cb := range l.callbacks {
		cb.OnToolNotFound(ctx, agent, tool)
	}
}

func (l *FanoutCallback) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	for _, cb := range l.callbacks {
		cb.OnToolStart(ctx, tool, input)
	}
}

func (l *FanoutCallback) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string) {
	for _, cb := range l.callbacks {
		cb.OnToolEnd(ctx, tool, input, output)
	}
}

func (l *FanoutCallback) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	for _, cb := range l.callbacks {
		cb.OnToolError(ctx, tool, input, err)
	}
}

// PackageLoggerCallback is a callback handler that prints to the logger.
type PackageLoggerCallback struct {
	logger *xlog.PackageLogger
}

func NewPackageLoggerCallback(logger *xlog.PackageLogger) *PackageLoggerCallback {
	return &PackageLoggerCallback{logger: logger}
}

var _ Callback = (*PackageLoggerCallback)(nil)

func (l *PackageLoggerCallback) OnAgentStart(ctx context.Context, agent IAgent, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "agent_start",
		"agent", agent.Name(),
		"input", input,
	)
}

func (l *PackageLoggerCallback) OnAgentEnd(ctx context.Context, agent IAgent, input string, result string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "agent_end",
		"agent", agent.Name(),
		"result", result,
	)
}

func (l *PackageLoggerCallback) OnAgentError(ctx context.Context, agent IAgent, input string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "agent_error",
		"agent", agent.Name(),
		"err", err.Error(),
	)
}

func (l *PackageLoggerCallback) OnToolNotFound(ctx context.Context, agent IAgent, tool string) {
	l.logger.ContextKV(ctx, xlog.WARNING,
		"event", "tool_not_found",
		"agent", agent.Name(),
		"tool", tool,
	)
}

func (l *PackageLoggerCallback) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"tool", tool.Name(),
		"input", input,
	)
}

func (l *PackageLoggerCallback) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"tool", tool.Name(),
		"output", output,
	)
}

func (l *PackageLoggerCallback) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "tool_error",
		"tool", tool.Name(),
		"err", err.Error(),
	)
}
