// Package store persists conversation history between agent queries.
// Messages are keyed by the chat ID carried in the context's ChatContext.
package store

import (
	"context"

	"github.com/effective-security/xlog"
	"github.com/meadowhq/metaagent/pkg/llms"
)

var logger = xlog.NewPackageLogger("github.com/meadowhq/metaagent", "store")

// MessageStore keeps the messages of a conversation. The chat is
// identified by the ChatContext in the provided context.
type MessageStore interface {
	// Messages returns the stored messages for the chat, oldest first.
	Messages(ctx context.Context) []llms.Message
	// Add appends messages to the chat.
	Add(ctx context.Context, msgs ...llms.Message) error
	// Reset removes the chat and its messages.
	Reset(ctx context.Context) error
}

// partModel is the serializable form of a message part.
type partModel struct {
	Type         string                 `json:"type"`
	Text         string                 `json:"text,omitempty"`
	ToolCall     *llms.ToolCall         `json:"tool_call,omitempty"`
	ToolResponse *llms.ToolCallResponse `json:"tool_response,omitempty"`
}

// messageModel is the serializable form of a message.
type messageModel struct {
	Role  llms.Role   `json:"role"`
	Parts []partModel `json:"parts"`
}

func toModel(msg llms.Message) messageModel {
	model := messageModel{Role: msg.Role}
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			model.Parts = append(model.Parts, partModel{Type: "text", Text: p.Text})
		case llms.ToolCall:
			tc := p
			model.Parts = append(model.Parts, partModel{Type: "tool_call", ToolCall: &tc})
		case llms.ToolCallResponse:
			tr := p
			model.Parts = append(model.Parts, partModel{Type: "tool_response", ToolResponse: &tr})
		}
	}
	return model
}

func (m messageModel) message() llms.Message {
	msg := llms.Message{Role: m.Role}
	for _, part := range m.Parts {
		switch part.Type {
		case "text":
			msg.Parts = append(msg.Parts, llms.TextContent{Text: part.Text})
		case "tool_call":
			if part.ToolCall != nil {
				msg.Parts = append(msg.Parts, *part.ToolCall)
			}
		case "tool_response":
			if part.ToolResponse != nil {
				msg.Parts = append(msg.Parts, *part.ToolResponse)
			}
		}
	}
	return msg
}
