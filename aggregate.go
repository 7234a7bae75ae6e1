package metaagent

import (
	"context"
	"strings"

	"github.com/effective-security/xlog"
	"github.com/meadowhq/metaagent/agent"
	"github.com/meadowhq/metaagent/chatmodel"
)

// aggregate drains the stream into a single answer. Text blocks
// accumulate; tool activity is logged and dropped. A result message with
// a non-empty result replaces the accumulated text.
func aggregate(ctx context.Context, stream *agent.Stream) string {
	var buf strings.Builder
	var final string

	for msg := range stream.Messages() {
		switch m := msg.(type) {
		case chatmodel.AssistantMessage:
			for _, block := range m.Content {
				switch b := block.(type) {
				case chatmodel.TextBlock:
					buf.WriteString(b.Text)
				case chatmodel.ToolUseBlock:
					logger.ContextKV(ctx, xlog.DEBUG,
						"status", "tool_use",
						"tool", b.Name,
						"tool_call_id", b.ID,
					)
				case chatmodel.ToolResultBlock:
					logger.ContextKV(ctx, xlog.DEBUG,
						"status", "tool_result",
						"tool_call_id", b.ToolUseID,
						"is_error", b.IsError,
					)
				}
			}
		case chatmodel.ResultMessage:
			final = m.Result
		}
	}

	if final != "" {
		return final
	}
	if buf.Len() > 0 {
		return buf.String()
	}
	return "No result generated"
}
