package llm

// Wire message shapes for the reference gRPC LLM service. Hand-written and
// exchanged via the JSON codec (grpc_codec.go) rather than protoc-generated
// types, since there is no .proto source to generate from here.

type wireRole string

const (
	wireRoleSystem    wireRole = "system"
	wireRoleUser      wireRole = "user"
	wireRoleAssistant wireRole = "assistant"
	wireRoleTool      wireRole = "tool"
)

type wireMessage struct {
	Role    wireRole `json:"role"`
	Content string   `json:"content"`
}

type wireToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

type wireToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CachedTokens     int `json:"cached_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type completionRequestWire struct {
	Model       string         `json:"model"`
	Messages    []wireMessage  `json:"messages"`
	Tools       []wireToolSpec `json:"tools,omitempty"`
	Temperature *float64       `json:"temperature,omitempty"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
}

type completionResponseWire struct {
	Content   string         `json:"content"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
	Usage     wireUsage      `json:"usage"`
}

type streamChunkWire struct {
	Delta     string         `json:"delta,omitempty"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
	Done      bool           `json:"done,omitempty"`
	Usage     wireUsage      `json:"usage,omitempty"`
	Error     string         `json:"error,omitempty"`
}
