package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsLLMMessagesSent is base for counter metric for total messages sent to LLM
	StatsLLMMessagesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_messages_sent",
		Help:         "stats_llm_messages_sent provides total messages sent to LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMBytesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_sent",
		Help:         "stats_llm_bytes_sent provides total bytes sent to LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMBytesReceived = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_received",
		Help:         "stats_llm_bytes_received provides total bytes received from LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMInputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_input_tokens",
		Help:         "stats_llm_input_tokens provides total input tokens sent to LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMOutputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_output_tokens",
		Help:         "stats_llm_output_tokens provides total output tokens received from LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsSessionQueriesSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_session_queries_succeeded",
		Help:         "stats_session_queries_succeeded provides total session queries succeeded",
		RequiredTags: []string{"agent"},
	}

	StatsSessionQueriesFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_session_queries_failed",
		Help:         "stats_session_queries_failed provides total session queries failed",
		RequiredTags: []string{"agent"},
	}

	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls not found",
		RequiredTags: []string{"tool"},
	}
)

// Perf
var (
	// PerfSessionQuery is base for sample metric of session query duration
	PerfSessionQuery = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_session_query",
		Help:         "perf_session_query provides duration of session queries",
		RequiredTags: []string{"agent"},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool calls",
		RequiredTags: []string{"tool"},
	}
)

// Metrics returns the list of all metrics described in this package.
func Metrics() []*metrics.Describe {
	return []*metrics.Describe{
		&StatsLLMMessagesSent,
		&StatsLLMBytesSent,
		&StatsLLMBytesReceived,
		&StatsLLMInputTokens,
		&StatsLLMOutputTokens,
		&StatsSessionQueriesSucceeded,
		&StatsSessionQueriesFailed,
		&StatsToolCallsSucceeded,
		&StatsToolCallsFailed,
		&StatsToolCallsNotFound,
		&PerfSessionQuery,
		&PerfToolCall,
	}
}
