package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/meadowhq/metaagent/chatmodel"
	"github.com/meadowhq/metaagent/pkg/llms"
	"github.com/meadowhq/metaagent/pkg/llmutils"
	"github.com/meadowhq/metaagent/pkg/metricskey"
)

// Session is a single conversation scope. Sessions are not safe for
// concurrent queries; open one session per logical conversation and
// always Close it.
type Session struct {
	agent  *Agent
	chatID string

	mu     sync.Mutex
	closed bool
}

// Stream is a finite sequence of messages produced by one query.
// Messages terminates after a ResultMessage or a failure; Err reports
// the failure once the channel is drained.
type Stream struct {
	ch  chan chatmodel.Message
	err error
}

// Messages returns the channel of streamed messages. The channel is
// closed when the query completes.
func (s *Stream) Messages() <-chan chatmodel.Message {
	return s.ch
}

// Err returns the query failure, if any. Valid only after Messages is
// drained.
func (s *Stream) Err() error {
	return s.err
}

// Query submits a prompt and streams back the agent's messages. The
// returned stream is finite: assistant messages while the model works
// the tools, then a single result message.
func (s *Session) Query(ctx context.Context, prompt string) (*Stream, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.New("session is closed")
	}
	s.mu.Unlock()

	stream := &Stream{
		ch: make(chan chatmodel.Message),
	}
	go func() {
		defer close(stream.ch)
		stream.err = s.run(ctx, prompt, stream)
	}()
	return stream, nil
}

// Close releases the session. It is safe to call multiple times.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	logger.KV(xlog.DEBUG,
		"agent", s.agent.cfg.Name,
		"status", "session_closed",
		"chat_id", s.chatID,
	)
	return nil
}

func (s *Session) run(ctx context.Context, prompt string, stream *Stream) error {
	started := time.Now()
	a := s.agent
	cfg := a.cfg
	defer metricskey.PerfSessionQuery.MeasureSince(started, cfg.Name)

	if cfg.Callback != nil {
		cfg.Callback.OnAgentStart(ctx, a, prompt)
	}

	result, numTurns, err := s.converse(ctx, prompt, stream)
	if err != nil {
		metricskey.StatsSessionQueriesFailed.IncrCounter(1, cfg.Name)
		if cfg.Callback != nil {
			cfg.Callback.OnAgentError(ctx, a, prompt, err)
		}
		return err
	}

	metricskey.StatsSessionQueriesSucceeded.IncrCounter(1, cfg.Name)
	if cfg.Callback != nil {
		cfg.Callback.OnAgentEnd(ctx, a, prompt, result)
	}

	return s.send(ctx, stream, chatmodel.ResultMessage{
		Result:     result,
		NumTurns:   numTurns,
		DurationMS: time.Since(started).Milliseconds(),
	})
}

// converse drives the model's tool-call loop to completion, emitting an
// assistant message per model turn, and returns the final text.
func (s *Session) converse(ctx context.Context, prompt string, stream *Stream) (string, int, error) {
	a := s.agent
	cfg := a.cfg
	agentName := cfg.Name
	modelName := a.llm.GetName()

	var messageHistory []llms.Message
	if cfg.SystemPrompt != "" {
		messageHistory = append(messageHistory, llms.MessageFromTextParts(llms.RoleSystem, cfg.SystemPrompt))
	}
	if cfg.Store != nil {
		prevMessages := cfg.Store.Messages(ctx)
		logger.ContextKV(ctx, xlog.DEBUG,
			"agent", agentName,
			"chat_id", s.chatID,
			"message_history", len(prevMessages))
		messageHistory = append(messageHistory, prevMessages...)
	}

	userMessage := llms.MessageFromTextParts(llms.RoleHuman, prompt)
	messageHistory = append(messageHistory, userMessage)
	runMessages := []llms.Message{userMessage}

	var callOpts []llms.CallOption
	if len(a.llmToolDefs) > 0 {
		callOpts = append(callOpts, llms.WithTools(a.llmToolDefs))
	}

	maxMessages := values.NumbersCoalesce(cfg.MaxMessages, DefaultMaxMessages)
	bytesLimit := values.NumbersCoalesce(cfg.MaxContentSize, DefaultMaxContentSize)
	toolsLimit := values.NumbersCoalesce(cfg.MaxToolCalls, DefaultMaxToolCalls)

	var resp *llms.ContentResponse
	var err error
	var numTurns int
	var totalToolExecuted int
	retryCount := 0
	consecutiveNotFoundCount := 0

	for {
		if err := ctx.Err(); err != nil {
			return "", numTurns, errors.WithStack(err)
		}
		if len(messageHistory) >= maxMessages {
			return "", numTurns, errors.Newf("agent %s: the messages count exceeded limit", agentName)
		}
		bytesSent := llmutils.CountMessagesContentSize(messageHistory)
		if bytesSent > bytesLimit {
			return "", numTurns, errors.Newf("agent %s: the content size exceeded limit", agentName)
		}

		metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(messageHistory)), agentName, modelName)
		metricskey.StatsLLMBytesSent.IncrCounter(float64(bytesSent), agentName, modelName)

		resp, err = a.llm.GenerateContent(ctx, messageHistory, callOpts...)
		if err != nil {
			return "", numTurns, errors.Wrapf(err, "failed to generate content from LLM")
		}
		numTurns++

		metricskey.StatsLLMBytesReceived.IncrCounter(float64(llmutils.CountResponseContentSize(resp)), agentName, modelName)
		tokensIn, tokensOut, _ := llmutils.CountTokens(resp)
		metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), agentName, modelName)
		metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), agentName, modelName)

		if len(resp.Choices) == 0 {
			retryCount++
			if retryCount >= DefaultMaxRetries {
				logger.ContextKV(ctx, xlog.ERROR,
					"agent", agentName,
					"status", "max_retries_exceeded",
					"input", slices.StringUpto(prompt, 64),
					"retry_count", retryCount,
				)
				return "", numTurns, errors.Newf("agent %s: LLM returned empty response after %d retries", agentName, retryCount)
			}
			logger.ContextKV(ctx, xlog.WARNING,
				"agent", agentName,
				"status", "retrying_empty_response",
				"retry_count", retryCount,
			)
			continue
		}

		toolExecuted, notFoundCount, history, run, err := s.executeToolCalls(ctx, messageHistory, resp, stream)
		if err != nil {
			return "", numTurns, err
		}
		messageHistory = history
		runMessages = append(runMessages, run...)

		if toolExecuted == 0 {
			break
		}
		consecutiveNotFoundCount += notFoundCount
		totalToolExecuted += toolExecuted
		if consecutiveNotFoundCount > 3 {
			return "", numTurns, errors.Newf("agent %s: the number of not found tools is exceeded", agentName)
		}
		if notFoundCount == 0 {
			consecutiveNotFoundCount = 0
		}
		if totalToolExecuted >= toolsLimit {
			return "", numTurns, errors.Newf("agent %s: the tool calls limit is exceeded", agentName)
		}
	}

	result := resp.Choices[0].Content
	if len(resp.Choices) > 1 {
		var combined strings.Builder
		for i, choice := range resp.Choices {
			if i > 0 {
				combined.WriteString("\n\n")
			}
			combined.WriteString(choice.Content)
		}
		result = combined.String()
	}

	runMessages = append(runMessages, llms.MessageFromTextParts(llms.RoleAI, result))
	if cfg.Store != nil {
		_ = cfg.Store.Add(ctx, runMessages...)
		logger.ContextKV(ctx, xlog.DEBUG,
			"agent", agentName,
			"chat_id", s.chatID,
			"status", "added_message_history",
			"message_history", len(runMessages),
			"human", slices.StringUpto(prompt, 64),
			"ai", slices.StringUpto(result, 64),
		)
	}

	return result, numTurns, nil
}

// executeToolCalls runs every tool call in the response, emits the turn
// and its results on the stream, and returns the updated history and the
// messages to persist.
func (s *Session) executeToolCalls(
	ctx context.Context,
	messageHistory []llms.Message,
	resp *llms.ContentResponse,
	stream *Stream,
) (int, int, []llms.Message, []llms.Message, error) {
	a := s.agent
	cfg := a.cfg

	var runMessages []llms.Message
	var toolCalls []llms.ToolCall
	var turnBlocks []chatmodel.ContentBlock

	for _, choice := range resp.Choices {
		if choice.Content != "" {
			turnBlocks = append(turnBlocks, chatmodel.TextBlock{Text: choice.Content})
		}

		var choiceToolCalls []llms.ToolCall
		for i, toolCall := range choice.ToolCalls {
			if toolCall.ID == "" {
				toolCall.ID = fmt.Sprintf("%s_%d", toolCall.FunctionCall.Name, i)
			}
			toolCall.Type = values.StringsCoalesce(toolCall.Type, "function")
			choiceToolCalls = append(choiceToolCalls, toolCall)
			turnBlocks = append(turnBlocks, chatmodel.ToolUseBlock{
				ID:    toolCall.ID,
				Name:  toolCall.FunctionCall.Name,
				Input: []byte(toolCall.FunctionCall.Arguments),
			})

			logger.ContextKV(ctx, xlog.DEBUG,
				"agent", cfg.Name,
				"status", "tool_call_found",
				"tool_call_id", toolCall.ID,
				"tool_call_name", toolCall.FunctionCall.Name,
			)
		}
		if len(choiceToolCalls) == 0 {
			continue
		}

		toolCalls = append(toolCalls, choiceToolCalls...)
		assistantResponse := llms.MessageFromToolCalls(llms.RoleAI, choiceToolCalls...)
		messageHistory = append(messageHistory, assistantResponse)
		runMessages = append(runMessages, assistantResponse)
	}

	// A turn with no tool calls is the final turn; its text arrives as
	// the result message, not as an assistant message.
	if len(toolCalls) == 0 {
		return 0, 0, messageHistory, runMessages, nil
	}
	if err := s.send(ctx, stream, chatmodel.AssistantMessage{Content: turnBlocks}); err != nil {
		return 0, 0, messageHistory, runMessages, err
	}

	type toolCallResult struct {
		response string
		err      error
		notFound bool
	}
	results := make([]toolCallResult, len(toolCalls))

	var wg sync.WaitGroup
	wg.Add(len(toolCalls))
	for i, toolCall := range toolCalls {
		go func(index int, tc llms.ToolCall) {
			defer wg.Done()
			toolName := tc.FunctionCall.Name
			toolArgs := tc.FunctionCall.Arguments

			tool := a.toolsByName[strings.ToLower(toolName)]
			if tool == nil {
				metricskey.StatsToolCallsNotFound.IncrCounter(1, toolName)
				if cfg.Callback != nil {
					cfg.Callback.OnToolNotFound(ctx, a, toolName)
				}

				availableTools := strings.Join(a.toolNames, ", ")
				logger.ContextKV(ctx, xlog.WARNING,
					"agent", cfg.Name,
					"status", "tool_not_found",
					"tool_name", toolName,
					"available_tools", availableTools,
				)
				results[index] = toolCallResult{
					response: fmt.Sprintf("Tool `%s` not found. Please check the tool name and try again with exact match. Available tools: %s", toolName, availableTools),
					notFound: true,
				}
				return
			}

			if cfg.Callback != nil {
				cfg.Callback.OnToolStart(ctx, tool, toolArgs)
			}

			started := time.Now()
			res, err := tool.Call(ctx, toolArgs)
			metricskey.PerfToolCall.MeasureSince(started, toolName)

			if err != nil {
				metricskey.StatsToolCallsFailed.IncrCounter(1, toolName)
				if cfg.Callback != nil {
					cfg.Callback.OnToolError(ctx, tool, toolArgs, err)
				}
				if errors.Is(err, chatmodel.ErrFailedUnmarshalInput) {
					results[index] = toolCallResult{
						response: "Failed to unmarshal input, check the JSON schema and try again.",
					}
				} else {
					results[index] = toolCallResult{
						err: errors.WithMessagef(err, "failed to call tool %s", toolName),
					}
				}
				return
			}
			metricskey.StatsToolCallsSucceeded.IncrCounter(1, toolName)

			if cfg.Callback != nil {
				cfg.Callback.OnToolEnd(ctx, tool, toolArgs, res)
			}
			results[index] = toolCallResult{response: res}
		}(i, toolCall)
	}
	wg.Wait()

	notFoundCount := 0
	var resultBlocks []chatmodel.ContentBlock
	for i, result := range results {
		toolCall := toolCalls[i]
		if result.notFound {
			notFoundCount++
		}

		content := result.response
		if result.err != nil {
			content = fmt.Sprintf("Tool call failed: %s", result.err.Error())
			logger.ContextKV(ctx, xlog.WARNING,
				"agent", cfg.Name,
				"status", "tool_call_failed",
				"tool", toolCall.FunctionCall.Name,
				"err", result.err.Error(),
			)
		}

		resultBlocks = append(resultBlocks, chatmodel.ToolResultBlock{
			ToolUseID: toolCall.ID,
			Content:   []chatmodel.ContentBlock{chatmodel.TextBlock{Text: content}},
			IsError:   result.err != nil,
		})

		toolCallResponse := llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
			ToolCallID: toolCall.ID,
			Name:       toolCall.FunctionCall.Name,
			Content:    content,
		})
		messageHistory = append(messageHistory, toolCallResponse)
		runMessages = append(runMessages, toolCallResponse)
	}

	if err := s.send(ctx, stream, chatmodel.AssistantMessage{Content: resultBlocks}); err != nil {
		return 0, 0, messageHistory, runMessages, err
	}

	return len(toolCalls), notFoundCount, messageHistory, runMessages, nil
}

// send delivers a message on the stream unless the caller has gone away.
// A caller that cancels its context and abandons the stream must not pin
// the producer goroutine on the unbuffered channel.
func (s *Session) send(ctx context.Context, stream *Stream, msg chatmodel.Message) error {
	select {
	case stream.ch <- msg:
		return nil
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	}
}
