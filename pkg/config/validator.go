package config

import "fmt"

// Validator validates a loaded Config comprehensively, with clear
// field-scoped error messages.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast: stops at the
// first error).
func (v *Validator) ValidateAll() error {
	if err := v.validateExecutor(); err != nil {
		return fmt.Errorf("executor validation failed: %w", err)
	}
	if err := v.validateMetrics(); err != nil {
		return fmt.Errorf("metrics validation failed: %w", err)
	}
	if err := v.validateBreaker(); err != nil {
		return fmt.Errorf("circuit breaker validation failed: %w", err)
	}
	if err := v.validateSummary(); err != nil {
		return fmt.Errorf("summary validation failed: %w", err)
	}
	if err := v.validateBoundary(); err != nil {
		return fmt.Errorf("boundary validation failed: %w", err)
	}
	if err := v.validateFallback(); err != nil {
		return fmt.Errorf("fallback validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateExecutor() error {
	c := v.cfg
	if c.MaxConcurrentRequests < 1 {
		return NewValidationError("max_concurrent_requests", fmt.Errorf("must be at least 1, got %d", c.MaxConcurrentRequests))
	}
	if c.SaturationPolicy != "" && c.SaturationPolicy != "fail_fast" && c.SaturationPolicy != "queue" {
		return NewValidationError("saturation_policy", fmt.Errorf("must be 'fail_fast' or 'queue', got %q", c.SaturationPolicy))
	}
	if c.RequestTimeoutMs < 1 {
		return NewValidationError("request_timeout_ms", fmt.Errorf("must be positive, got %d", c.RequestTimeoutMs))
	}
	if c.ToolCallTimeoutMs < 1 {
		return NewValidationError("tool_call_timeout_ms", fmt.Errorf("must be positive, got %d", c.ToolCallTimeoutMs))
	}
	if c.MaxToolCalls < 1 {
		return NewValidationError("max_tool_calls", fmt.Errorf("must be at least 1, got %d", c.MaxToolCalls))
	}
	if c.ToolParallelism < 1 {
		return NewValidationError("tool_parallelism", fmt.Errorf("must be at least 1, got %d", c.ToolParallelism))
	}
	if c.MaxContextWindowTokens < 1 {
		return NewValidationError("max_context_window_tokens", fmt.Errorf("must be positive, got %d", c.MaxContextWindowTokens))
	}
	if c.OutputReserveTokens < 0 {
		return NewValidationError("output_reserve_tokens", fmt.Errorf("must be non-negative, got %d", c.OutputReserveTokens))
	}
	if c.OutputReserveTokens >= c.MaxContextWindowTokens {
		return NewValidationError("output_reserve_tokens", fmt.Errorf("must be less than max_context_window_tokens (%d), got %d", c.MaxContextWindowTokens, c.OutputReserveTokens))
	}
	if c.CacheableTemperature < 0 || c.CacheableTemperature > 2 {
		return NewValidationError("cacheable_temperature", fmt.Errorf("must be in [0, 2], got %v", c.CacheableTemperature))
	}
	if c.MaxIterations < 1 {
		return NewValidationError("max_iterations", fmt.Errorf("must be at least 1, got %d", c.MaxIterations))
	}
	return nil
}

func (v *Validator) validateMetrics() error {
	c := v.cfg
	if c.RingBufferSize < 1 {
		return NewValidationError("ring_buffer_size", fmt.Errorf("must be at least 1, got %d", c.RingBufferSize))
	}
	if c.BatchSize < 1 {
		return NewValidationError("batch_size", fmt.Errorf("must be at least 1, got %d", c.BatchSize))
	}
	if c.FlushIntervalMs < 1 {
		return NewValidationError("flush_interval_ms", fmt.Errorf("must be positive, got %d", c.FlushIntervalMs))
	}
	if c.WriterThreads < 1 {
		return NewValidationError("writer_threads", fmt.Errorf("must be at least 1, got %d", c.WriterThreads))
	}
	return nil
}

func (v *Validator) validateBreaker() error {
	c := v.cfg
	if c.FailureThreshold < 1 {
		return NewValidationError("failure_threshold", fmt.Errorf("must be at least 1, got %d", c.FailureThreshold))
	}
	if c.ResetTimeoutMs < 1 {
		return NewValidationError("reset_timeout_ms", fmt.Errorf("must be positive, got %d", c.ResetTimeoutMs))
	}
	if c.HalfOpenMaxCalls < 1 {
		return NewValidationError("half_open_max_calls", fmt.Errorf("must be at least 1, got %d", c.HalfOpenMaxCalls))
	}
	return nil
}

func (v *Validator) validateSummary() error {
	s := v.cfg.Summary
	if !s.Enabled {
		return nil
	}
	if s.TriggerMessageCount < 1 {
		return NewValidationError("summary.trigger_message_count", fmt.Errorf("must be at least 1, got %d", s.TriggerMessageCount))
	}
	if s.RecentMessageCount < 1 {
		return NewValidationError("summary.recent_message_count", fmt.Errorf("must be at least 1, got %d", s.RecentMessageCount))
	}
	if s.RecentMessageCount > s.TriggerMessageCount {
		return NewValidationError("summary.recent_message_count", fmt.Errorf("must not exceed trigger_message_count (%d), got %d", s.TriggerMessageCount, s.RecentMessageCount))
	}
	return nil
}

func (v *Validator) validateBoundary() error {
	b := v.cfg.Boundary
	if b.OutputMaxChars > 0 && b.OutputMinChars > 0 && b.OutputMinChars > b.OutputMaxChars {
		return NewValidationError("boundary.output_min_chars", fmt.Errorf("must not exceed output_max_chars (%d), got %d", b.OutputMaxChars, b.OutputMinChars))
	}
	switch b.OutputMinViolationMode {
	case "", "WARN", "RETRY_ONCE", "FAIL":
	default:
		return NewValidationError("boundary.output_min_violation_mode", fmt.Errorf("must be one of WARN, RETRY_ONCE, FAIL, got %q", b.OutputMinViolationMode))
	}
	return nil
}

func (v *Validator) validateFallback() error {
	f := v.cfg.Fallback
	if f.Enabled && len(f.Models) == 0 {
		return fmt.Errorf("at least one model is required when fallback is enabled")
	}
	return nil
}
