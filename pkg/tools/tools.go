// Package tools implements the tool layer the ReAct loop calls into:
// definitions advertised to the LLM, a registry that aggregates tools from
// multiple backends under unique names, and pluggable selection policies
// that narrow the tool set offered for a given turn.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Definition describes a callable tool as advertised to the LLM.
type Definition struct {
	Name        string
	Description string
	InputSchema map[string]any
	Category    string
}

// Call is one invocation request the LLM emitted.
type Call struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Result is the adapted, text-normalized outcome of a tool call. Content is
// always a string — structured results are JSON-serialized — so every tool
// backend (MCP, worker-agent, local) presents a uniform shape to the ReAct
// loop regardless of what it natively returns.
type Result struct {
	CallID  string
	Name    string
	Content string
	IsError bool
}

// maxResultChars bounds how much of a tool result is kept before truncation,
// mirroring pkg/mcp's storage truncation limit.
const maxResultChars = 32000

// Executor is implemented by each tool backend: MCP servers, worker-agent
// dispatch, or any other callable surface.
type Executor interface {
	ListTools(ctx context.Context) ([]Definition, error)
	Execute(ctx context.Context, call Call) (Result, error)
	Close() error
}

// AdaptArguments serializes a call's arguments into the JSON string most
// tool backends expect as their wire format.
func AdaptArguments(args map[string]any) (string, error) {
	if args == nil {
		return "{}", nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("marshal tool arguments: %w", err)
	}
	return string(b), nil
}

// NormalizeResultContent text-normalizes a raw backend result: it truncates
// oversized output at a line boundary and appends a marker, the same
// contract pkg/mcp's EstimateTokens-driven truncation uses for tool output.
func NormalizeResultContent(content string) string {
	if len(content) <= maxResultChars {
		return content
	}
	cut := maxResultChars
	for cut > 0 && !isRuneStart(content[cut]) {
		cut--
	}
	truncated := content[:cut]
	if idx := strings.LastIndex(truncated, "\n"); idx > 0 {
		truncated = truncated[:idx]
	}
	return truncated + fmt.Sprintf("\n\n[TRUNCATED: tool output exceeded %d characters]", maxResultChars)
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
