package llmutils

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/meadowhq/metaagent/pkg/llms"
)

// CleanJSON returns JSON by trimming prefixes and postfixes,
// as an LLM can reply like `Here you go: {json}`.
func CleanJSON(bs []byte) []byte {
	return trimPostfixAfterJSON(trimPrefixBeforeJSON(bs))
}

// Removes any prefixes before the JSON (like "Sure, here you go:")
func trimPrefixBeforeJSON(bs []byte) []byte {
	startObject := bytes.IndexByte(bs, '{')
	startArray := bytes.IndexByte(bs, '[')

	var start int
	if startObject == -1 && startArray == -1 {
		return bs
	} else if startObject == -1 {
		start = startArray
	} else if startArray == -1 {
		start = startObject
	} else {
		start = min(startObject, startArray)
	}

	return bs[start:]
}

// Removes any postfixes after the JSON
func trimPostfixAfterJSON(bs []byte) []byte {
	endObject := bytes.LastIndexByte(bs, '}')
	endArray := bytes.LastIndexByte(bs, ']')

	var end int
	if endObject == -1 && endArray == -1 {
		return bs
	} else if endObject == -1 {
		end = endArray
	} else if endArray == -1 {
		end = endObject
	} else {
		end = max(endObject, endArray)
	}

	return bs[:end+1]
}

func ToJSON(val any) string {
	js, _ := json.Marshal(val)
	return string(js)
}

func ToJSONIndent(val any) string {
	js, _ := json.MarshalIndent(val, "", "\t")
	return string(js)
}

func JSONIndent(body string) string {
	var buf bytes.Buffer
	_ = json.Indent(&buf, []byte(body), "", "\t")
	return buf.String()
}

func BackticksJSON(js string) string {
	return "\n```json\n" + strings.TrimSpace(js) + "\n```\n"
}

// CountMessagesContentSize returns the total byte size of text, tool call
// and tool response parts across the given messages.
func CountMessagesContentSize(messages []llms.Message) uint64 {
	var size uint64
	for _, msg := range messages {
		for _, part := range msg.Parts {
			switch p := part.(type) {
			case llms.TextContent:
				size += uint64(len(p.Text))
			case llms.ToolCall:
				if p.FunctionCall != nil {
					size += uint64(len(p.FunctionCall.Name) + len(p.FunctionCall.Arguments))
				}
			case llms.ToolCallResponse:
				size += uint64(len(p.Content))
			}
		}
	}
	return size
}

// CountResponseContentSize returns the total byte size of the response choices.
func CountResponseContentSize(resp *llms.ContentResponse) uint64 {
	if resp == nil {
		return 0
	}
	var size uint64
	for _, choice := range resp.Choices {
		size += uint64(len(choice.Content))
		for _, tc := range choice.ToolCalls {
			if tc.FunctionCall != nil {
				size += uint64(len(tc.FunctionCall.Name) + len(tc.FunctionCall.Arguments))
			}
		}
	}
	return size
}

// CountTokens extracts input/output token usage from a response, when the
// provider reported it.
func CountTokens(resp *llms.ContentResponse) (in, out, total int64) {
	if resp == nil {
		return 0, 0, 0
	}
	for _, choice := range resp.Choices {
		in += asInt64(choice.GenerationInfo["InputTokens"])
		out += asInt64(choice.GenerationInfo["OutputTokens"])
	}
	return in, out, in + out
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

// FindLastUserQuestion returns the text of the last human message.
func FindLastUserQuestion(messages []llms.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Role != llms.RoleHuman {
			continue
		}
		for _, part := range msg.Parts {
			if p, ok := part.(llms.TextContent); ok {
				return p.Text
			}
		}
	}
	return ""
}
