package guard

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
)

// InputValidationStage rejects prompts longer than a configured character
// limit.
type InputValidationStage struct {
	order     int
	maxChars  int
}

// NewInputValidationStage builds an input-length validation stage.
func NewInputValidationStage(order, maxChars int) *InputValidationStage {
	return &InputValidationStage{order: order, maxChars: maxChars}
}

func (s *InputValidationStage) Name() string      { return "inputValidation" }
func (s *InputValidationStage) Order() int        { return s.order }
func (s *InputValidationStage) FailOnError() bool { return false }

func (s *InputValidationStage) Check(_ context.Context, cmd corekit.AgentCommand) (Result, error) {
	if s.maxChars > 0 && len(cmd.UserPrompt) > s.maxChars {
		return rejected(s.Name(), ReasonValidation,
			fmt.Sprintf("prompt length %d exceeds limit %d", len(cmd.UserPrompt), s.maxChars)), nil
	}
	return allowed(), nil
}

// InjectionDetectionStage rejects prompts matching a configured set of
// dangerous patterns (command injection, path traversal, prompt-injection
// markers). Patterns are plain regexes so the pattern set is fully
// configurable and the rejection set stays deterministic given the command.
type InjectionDetectionStage struct {
	order    int
	patterns []*regexp.Regexp
}

// DefaultInjectionPatterns is a conservative starting set covering common
// shell-destructive commands and classic prompt-injection phrasing.
func DefaultInjectionPatterns() []string {
	return []string{
		`(?i)rm\s+-rf\s+/`,
		`(?i)\bdrop\s+table\b`,
		`(?i)ignore\s+(all\s+)?previous\s+instructions`,
		`(?i)\bsudo\s+rm\b`,
	}
}

// NewInjectionDetectionStage compiles the given patterns. Invalid regexes
// are skipped (logged by the caller via guard.Pipeline's FailOnError path
// if the stage is configured to fail closed on construction errors).
func NewInjectionDetectionStage(order int, patterns []string) (*InjectionDetectionStage, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid injection pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &InjectionDetectionStage{order: order, patterns: compiled}, nil
}

func (s *InjectionDetectionStage) Name() string      { return "injectionDetection" }
func (s *InjectionDetectionStage) Order() int        { return s.order }
func (s *InjectionDetectionStage) FailOnError() bool { return false }

func (s *InjectionDetectionStage) Check(_ context.Context, cmd corekit.AgentCommand) (Result, error) {
	for _, re := range s.patterns {
		if re.MatchString(cmd.UserPrompt) {
			return rejected(s.Name(), ReasonInjection, "prompt matched pattern: "+re.String()), nil
		}
	}
	return allowed(), nil
}

// ClassificationStage rejects prompts whose topic/intent (as determined by
// a pluggable Classifier) falls in a disallowed category set.
type ClassificationStage struct {
	order      int
	classifier Classifier
	disallowed map[string]struct{}
}

// Classifier assigns a coarse category to a prompt. Implementations may be
// keyword-based, a small model call, or an external service; the core only
// depends on this interface.
type Classifier interface {
	Classify(ctx context.Context, prompt string) (category string, err error)
}

// KeywordClassifier is a minimal Classifier: the first keyword set whose
// member appears (case-insensitive) in the prompt wins; "general" otherwise.
type KeywordClassifier struct {
	Categories map[string][]string // category -> keywords
}

func (k KeywordClassifier) Classify(_ context.Context, prompt string) (string, error) {
	lower := strings.ToLower(prompt)
	for category, keywords := range k.Categories {
		for _, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return category, nil
			}
		}
	}
	return "general", nil
}

// NewClassificationStage builds a classification stage that rejects when
// the classifier assigns a category present in disallowed.
func NewClassificationStage(order int, classifier Classifier, disallowed []string) *ClassificationStage {
	set := make(map[string]struct{}, len(disallowed))
	for _, c := range disallowed {
		set[c] = struct{}{}
	}
	return &ClassificationStage{order: order, classifier: classifier, disallowed: set}
}

func (s *ClassificationStage) Name() string      { return "classification" }
func (s *ClassificationStage) Order() int        { return s.order }
func (s *ClassificationStage) FailOnError() bool { return false }

func (s *ClassificationStage) Check(ctx context.Context, cmd corekit.AgentCommand) (Result, error) {
	category, err := s.classifier.Classify(ctx, cmd.UserPrompt)
	if err != nil {
		return Result{}, err
	}
	if _, bad := s.disallowed[category]; bad {
		return rejected(s.Name(), ReasonPolicy, "disallowed category: "+category), nil
	}
	return allowed(), nil
}

// PermissionStage rejects requests whose subject lacks permission, as
// determined by a pluggable Authorizer.
type PermissionStage struct {
	order      int
	authorizer Authorizer
}

// Authorizer decides whether a command's subject may proceed.
type Authorizer interface {
	Authorize(ctx context.Context, cmd corekit.AgentCommand) (bool, string, error)
}

// NewPermissionStage builds a permission stage delegating to authorizer.
func NewPermissionStage(order int, authorizer Authorizer) *PermissionStage {
	return &PermissionStage{order: order, authorizer: authorizer}
}

func (s *PermissionStage) Name() string      { return "permission" }
func (s *PermissionStage) Order() int        { return s.order }
func (s *PermissionStage) FailOnError() bool { return true }

func (s *PermissionStage) Check(ctx context.Context, cmd corekit.AgentCommand) (Result, error) {
	ok, reason, err := s.authorizer.Authorize(ctx, cmd)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		if reason == "" {
			reason = "not authorized"
		}
		return rejected(s.Name(), ReasonPermission, reason), nil
	}
	return allowed(), nil
}
