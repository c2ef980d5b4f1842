// Package guard implements the admission pipeline: ordered stages that
// reject or allow an AgentCommand before any LLM cost is incurred.
package guard

import (
	"context"
	"log/slog"
	"sort"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
)

// ReasonCategory classifies why a stage rejected a command.
type ReasonCategory string

const (
	ReasonRateLimit  ReasonCategory = "RATE_LIMIT"
	ReasonValidation ReasonCategory = "VALIDATION"
	ReasonInjection  ReasonCategory = "INJECTION"
	ReasonPolicy     ReasonCategory = "POLICY"
	ReasonPermission ReasonCategory = "PERMISSION"
)

// Result is the sum-typed outcome of a single stage check.
type Result struct {
	Allowed  bool
	Stage    string
	Category ReasonCategory
	Message  string
}

func allowed() Result { return Result{Allowed: true} }

func rejected(stage string, category ReasonCategory, message string) Result {
	return Result{Allowed: false, Stage: stage, Category: category, Message: message}
}

// Stage is one admission checkpoint. Stages run in ascending Order(); the
// first rejection short-circuits the pipeline.
type Stage interface {
	Name() string
	Order() int
	FailOnError() bool
	Check(ctx context.Context, cmd corekit.AgentCommand) (Result, error)
}

// Pipeline runs a fixed, ordered set of Stages against a command.
type Pipeline struct {
	stages []Stage
}

// NewPipeline builds a pipeline from the given stages, sorting them by
// Order() once so Check never has to re-sort on the hot path.
func NewPipeline(stages ...Stage) *Pipeline {
	sorted := append([]Stage(nil), stages...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order() < sorted[j].Order() })
	return &Pipeline{stages: sorted}
}

// Check runs every stage in order, stopping at the first rejection.
// A stage error is fail-closed (rejects with ReasonPolicy) only when the
// stage declares FailOnError; otherwise it is logged and treated as
// Allowed, and the pipeline continues to the next stage.
func (p *Pipeline) Check(ctx context.Context, cmd corekit.AgentCommand) Result {
	for _, stage := range p.stages {
		res, err := stage.Check(ctx, cmd)
		if err != nil {
			if stage.FailOnError() {
				slog.Error("guard stage failed closed", "stage", stage.Name(), "error", err)
				return rejected(stage.Name(), ReasonPolicy, "guard stage error: "+err.Error())
			}
			slog.Warn("guard stage error ignored (failOnError=false)", "stage", stage.Name(), "error", err)
			continue
		}
		if !res.Allowed {
			res.Stage = stage.Name()
			return res
		}
	}
	return allowed()
}
