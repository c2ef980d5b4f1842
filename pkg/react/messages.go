package react

import (
	"github.com/codeready-toolchain/agentcore/pkg/corekit"
	"github.com/codeready-toolchain/agentcore/pkg/llm"
	"github.com/codeready-toolchain/agentcore/pkg/tools"
)

// effectiveTemperature returns cmd's temperature, defaulting to 0 (treated
// as deterministic/cacheable) when the command leaves it unset.
func effectiveTemperature(cmd corekit.AgentCommand) float64 {
	if cmd.Temperature == nil {
		return 0
	}
	return *cmd.Temperature
}

// toolNamesOf returns the names of defs, in list order (cache.Fingerprint
// sorts them internally, so callers need not pre-sort).
func toolNamesOf(defs []tools.Definition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	return out
}

// toToolSpecs adapts selected tool definitions to the provider-facing shape.
func toToolSpecs(defs []tools.Definition) []llm.ToolSpec {
	out := make([]llm.ToolSpec, len(defs))
	for i, d := range defs {
		out[i] = llm.ToolSpec{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema}
	}
	return out
}

// buildInitialMessages assembles the system prompt, RAG context (if any),
// loaded history, and the new user turn into the running message list the
// ReAct loop mutates.
func buildInitialMessages(systemPrompt, ragContext string, history []corekit.Message, cmd corekit.AgentCommand) []corekit.Message {
	messages := make([]corekit.Message, 0, len(history)+3)
	if systemPrompt != "" {
		messages = append(messages, corekit.Message{Role: corekit.RoleSystem, Text: systemPrompt})
	}
	if ragContext != "" {
		messages = append(messages, corekit.Message{Role: corekit.RoleSystem, Text: ragContext})
	}
	messages = append(messages, history...)
	messages = append(messages, corekit.Message{Role: corekit.RoleUser, Text: cmd.UserPrompt, Media: cmd.Media})
	return messages
}
