package chatmodel

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

var (
	ErrFailedUnmarshalInput = errors.New("failed to unmarshal input: check the schema and try again")
)

// ContentBlock is a typed fragment of an agent message: text produced by the
// model, a tool invocation the model requested, or the result of a tool
// invocation. The set of implementations is closed.
type ContentBlock interface {
	isBlock()
}

// TextBlock is a block of model-produced text.
type TextBlock struct {
	Text string `json:"text"`
}

func (TextBlock) isBlock() {}

// ToolUseBlock is a tool invocation requested by the model.
type ToolUseBlock struct {
	// ID is the unique identifier of the invocation.
	ID string `json:"id"`
	// Name is the qualified name of the tool.
	Name string `json:"name"`
	// Input is the tool arguments as a JSON object.
	Input json.RawMessage `json:"input"`
}

func (ToolUseBlock) isBlock() {}

// ToolResultBlock is the outcome of a tool invocation, fed back into the
// conversation. Content holds the tool's content blocks; tools in this
// system produce text blocks only.
type ToolResultBlock struct {
	// ToolUseID is the ID of the invocation this result is for.
	ToolUseID string `json:"tool_use_id"`
	// Content is the content returned by the tool.
	Content []ContentBlock `json:"content"`
	// IsError reports whether the tool failed.
	IsError bool `json:"is_error,omitempty"`
}

func (ToolResultBlock) isBlock() {}

// Message is a single message streamed back from an agent session.
// The set of implementations is closed: AssistantMessage carries content
// blocks produced while the agent is working, ResultMessage terminates
// the stream with the final result.
type Message interface {
	isMessage()
}

// AssistantMessage is an in-progress agent turn: text, tool invocations
// and tool results.
type AssistantMessage struct {
	Content []ContentBlock `json:"content"`
}

func (AssistantMessage) isMessage() {}

// ResultMessage is the terminal message of a query. Once it appears, its
// Result supersedes any text accumulated from earlier messages.
type ResultMessage struct {
	// Result is the final text of the query.
	Result string `json:"result"`
	// NumTurns is the number of model turns taken.
	NumTurns int `json:"num_turns"`
	// DurationMS is the wall-clock duration of the query.
	DurationMS int64 `json:"duration_ms"`
	// IsError reports whether the query ended in a failure the agent
	// converted into text.
	IsError bool `json:"is_error,omitempty"`
}

func (ResultMessage) isMessage() {}

// TextOf collects the text of all text blocks in the given blocks.
func TextOf(blocks []ContentBlock) string {
	var out string
	for _, block := range blocks {
		if tb, ok := block.(TextBlock); ok {
			out += tb.Text
		}
	}
	return out
}
