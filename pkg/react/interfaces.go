package react

import (
	"context"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
	"github.com/codeready-toolchain/agentcore/pkg/llm"
	"github.com/codeready-toolchain/agentcore/pkg/tools"
)

// ToolExecutor is the narrow seam the executor depends on for tool
// resolution and invocation; *tools.Registry satisfies it directly.
type ToolExecutor interface {
	ListTools(ctx context.Context) ([]tools.Definition, error)
	Execute(ctx context.Context, call tools.Call) (tools.Result, error)
}

// MetricPublisher is the narrow seam into the async metric pipeline;
// *metrics.Writer satisfies it directly.
type MetricPublisher interface {
	Publish(ev corekit.MetricEvent)
}

// Provider is the narrow seam into LLM completion, already wrapped with
// whatever retry/circuit-breaker/fallback protection the caller wants
// applied around a raw llm.Provider. See NewProtectedProvider.
type Provider interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error)
	Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamEvent, error)
}

// RAGContextProvider retrieves retrieval-augmented-generation context for a
// command, if configured. Returning ("", nil) means no RAG context applies.
type RAGContextProvider interface {
	Retrieve(ctx context.Context, cmd corekit.AgentCommand) (string, error)
}

// CommandResolver resolves the effective command from the admitted one
// (intent resolution, persona selection). The identity resolver is used
// when none is configured.
type CommandResolver interface {
	Resolve(ctx context.Context, cmd corekit.AgentCommand) (corekit.AgentCommand, error)
}

type identityResolver struct{}

func (identityResolver) Resolve(_ context.Context, cmd corekit.AgentCommand) (corekit.AgentCommand, error) {
	return cmd, nil
}
