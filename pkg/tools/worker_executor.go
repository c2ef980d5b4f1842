package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Worker invokes a sub-agent run for a single delegated task, returning its
// final text output. Implemented by pkg/react's executor so a ReAct run can
// dispatch work to another ReAct run as a tool call.
type Worker interface {
	RunTask(ctx context.Context, task string) (string, error)
}

// WorkerExecutor exposes a pool of named worker agents as tools: a single
// "dispatch_agent" tool fans a task out to a named worker rather than
// registering one tool per worker, keeping the tool list stable as workers
// are added or removed.
type WorkerExecutor struct {
	workers map[string]Worker
}

// NewWorkerExecutor builds an executor over the given named workers.
func NewWorkerExecutor(workers map[string]Worker) *WorkerExecutor {
	return &WorkerExecutor{workers: workers}
}

const dispatchToolName = "dispatch_agent"

func (e *WorkerExecutor) ListTools(context.Context) ([]Definition, error) {
	if len(e.workers) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(e.workers))
	for name := range e.workers {
		names = append(names, name)
	}
	return []Definition{{
		Name:        dispatchToolName,
		Description: "Delegate a task to one of the available worker agents.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"agent": map[string]any{"type": "string", "enum": names},
				"task":  map[string]any{"type": "string"},
			},
			"required": []string{"agent", "task"},
		},
		Category: "orchestration",
	}}, nil
}

type dispatchArgs struct {
	Agent string `json:"agent"`
	Task  string `json:"task"`
}

func (e *WorkerExecutor) Execute(ctx context.Context, call Call) (Result, error) {
	if call.Name != dispatchToolName {
		return Result{CallID: call.ID, Name: call.Name, Content: fmt.Sprintf("unknown tool: %s", call.Name), IsError: true}, nil
	}

	raw, err := json.Marshal(call.Arguments)
	if err != nil {
		return Result{CallID: call.ID, Name: call.Name, Content: "invalid dispatch arguments", IsError: true}, nil
	}
	var args dispatchArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{CallID: call.ID, Name: call.Name, Content: "invalid dispatch arguments", IsError: true}, nil
	}

	worker, ok := e.workers[args.Agent]
	if !ok {
		return Result{CallID: call.ID, Name: call.Name, Content: fmt.Sprintf("unknown worker agent %q", args.Agent), IsError: true}, nil
	}

	out, err := worker.RunTask(ctx, args.Task)
	if err != nil {
		return Result{CallID: call.ID, Name: call.Name, Content: fmt.Sprintf("worker agent %q failed: %s", args.Agent, err), IsError: true}, nil
	}
	return Result{CallID: call.ID, Name: call.Name, Content: NormalizeResultContent(out)}, nil
}

func (e *WorkerExecutor) Close() error { return nil }
