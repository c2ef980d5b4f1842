// Package config loads and validates the agentcore runtime configuration:
// the tunables for the guard pipeline, ReAct executor, retry/circuit
// breaker, metric writer, conversation memory, response filters, and
// output boundary enforcement.
package config

import (
	"time"

	"github.com/codeready-toolchain/agentcore/pkg/boundary"
	"github.com/codeready-toolchain/agentcore/pkg/breaker"
	"github.com/codeready-toolchain/agentcore/pkg/memory"
	"github.com/codeready-toolchain/agentcore/pkg/metrics"
	"github.com/codeready-toolchain/agentcore/pkg/react"
	"github.com/codeready-toolchain/agentcore/pkg/retry"
)

// SummaryConfig tunes hierarchical conversation summarization.
type SummaryConfig struct {
	Enabled             bool `yaml:"enabled"`
	TriggerMessageCount int  `yaml:"trigger_message_count,omitempty" validate:"omitempty,min=1"`
	RecentMessageCount  int  `yaml:"recent_message_count,omitempty" validate:"omitempty,min=1"`
}

// ResponseConfig tunes the final-response filter chain.
type ResponseConfig struct {
	MaxLength      int  `yaml:"max_length,omitempty" validate:"omitempty,min=1"`
	FiltersEnabled bool `yaml:"filters_enabled"`
}

// FallbackConfig names the models tried, in order, when the primary
// provider's retry budget is exhausted.
type FallbackConfig struct {
	Enabled bool     `yaml:"enabled"`
	Models  []string `yaml:"models,omitempty"`
}

// BoundaryYAMLConfig is the YAML shape of output-length enforcement;
// OutputMinViolationMode is validated against boundary.MinLengthMode.
type BoundaryYAMLConfig struct {
	OutputMaxChars         int    `yaml:"output_max_chars,omitempty" validate:"omitempty,min=1"`
	OutputMinChars         int    `yaml:"output_min_chars,omitempty" validate:"omitempty,min=0"`
	OutputMinViolationMode string `yaml:"output_min_violation_mode,omitempty" validate:"omitempty,oneof=WARN RETRY_ONCE FAIL"`
}

// Config is the fully resolved, validated agentcore configuration — the
// result of Initialize. Every field has a sensible zero/default value so a
// caller that skips YAML entirely still gets a runnable configuration.
type Config struct {
	MaxConcurrentRequests  int     `yaml:"max_concurrent_requests,omitempty" validate:"omitempty,min=1"`
	SaturationPolicy       string  `yaml:"saturation_policy,omitempty" validate:"omitempty,oneof=fail_fast queue"`
	RequestTimeoutMs       int     `yaml:"request_timeout_ms,omitempty" validate:"omitempty,min=1"`
	ToolCallTimeoutMs      int     `yaml:"tool_call_timeout_ms,omitempty" validate:"omitempty,min=1"`
	MaxToolCalls           int     `yaml:"max_tool_calls,omitempty" validate:"omitempty,min=1"`
	MaxToolsPerRequest     int     `yaml:"max_tools_per_request,omitempty" validate:"omitempty,min=1"`
	ToolParallelism        int     `yaml:"tool_parallelism,omitempty" validate:"omitempty,min=1"`
	MaxContextWindowTokens int     `yaml:"max_context_window_tokens,omitempty" validate:"omitempty,min=1"`
	OutputReserveTokens    int     `yaml:"output_reserve_tokens,omitempty" validate:"omitempty,min=0"`
	CacheableTemperature   float64 `yaml:"cacheable_temperature" validate:"min=0,max=2"`
	MaxIterations          int     `yaml:"max_iterations,omitempty" validate:"omitempty,min=1"`

	RingBufferSize  int `yaml:"ring_buffer_size,omitempty" validate:"omitempty,min=1"`
	BatchSize       int `yaml:"batch_size,omitempty" validate:"omitempty,min=1"`
	FlushIntervalMs int `yaml:"flush_interval_ms,omitempty" validate:"omitempty,min=1"`
	WriterThreads   int `yaml:"writer_threads,omitempty" validate:"omitempty,min=1"`

	FailureThreshold int `yaml:"failure_threshold,omitempty" validate:"omitempty,min=1"`
	ResetTimeoutMs   int `yaml:"reset_timeout_ms,omitempty" validate:"omitempty,min=1"`
	HalfOpenMaxCalls int `yaml:"half_open_max_calls,omitempty" validate:"omitempty,min=1"`

	Summary  SummaryConfig      `yaml:"summary"`
	Response ResponseConfig     `yaml:"response"`
	Fallback FallbackConfig     `yaml:"fallback"`
	Boundary BoundaryYAMLConfig `yaml:"boundary"`
}

// DefaultConfig mirrors the suggested defaults of every collaborator
// package's own DefaultConfig, so a caller that never loads YAML still gets
// agentcore's documented out-of-the-box behavior.
func DefaultConfig() *Config {
	reactCfg := react.DefaultConfig()
	breakerCfg := breaker.DefaultConfig()
	writerCfg := metrics.DefaultWriterConfig()
	memCfg := memory.DefaultConfig()

	return &Config{
		MaxConcurrentRequests:  reactCfg.MaxConcurrentRequests,
		SaturationPolicy:       string(reactCfg.SaturationPolicy),
		RequestTimeoutMs:       int(reactCfg.RequestTimeout / time.Millisecond),
		ToolCallTimeoutMs:      int(reactCfg.ToolCallTimeout / time.Millisecond),
		MaxToolCalls:           reactCfg.MaxToolCalls,
		MaxToolsPerRequest:     reactCfg.MaxToolCalls,
		ToolParallelism:        reactCfg.ToolParallelism,
		MaxContextWindowTokens: reactCfg.MaxContextWindowTokens,
		OutputReserveTokens:    reactCfg.OutputReserveTokens,
		CacheableTemperature:   reactCfg.CacheableTemperature,
		MaxIterations:          reactCfg.MaxIterations,

		RingBufferSize:  4096,
		BatchSize:       writerCfg.BatchSize,
		FlushIntervalMs: int(writerCfg.DrainInterval / time.Millisecond),
		WriterThreads:   1,

		FailureThreshold: breakerCfg.FailureThreshold,
		ResetTimeoutMs:   int(breakerCfg.ResetTimeout / time.Millisecond),
		HalfOpenMaxCalls: breakerCfg.HalfOpenMaxCalls,

		Summary: SummaryConfig{
			Enabled:             true,
			TriggerMessageCount: memCfg.TriggerMessageCount,
			RecentMessageCount:  memCfg.RecentMessageCount,
		},
		Response: ResponseConfig{MaxLength: 0, FiltersEnabled: true},
		Fallback: FallbackConfig{Enabled: false},
		Boundary: BoundaryYAMLConfig{OutputMinViolationMode: "WARN"},
	}
}

// ReactConfig adapts the loaded configuration to pkg/react.Config, layering
// it over react.DefaultConfig() so any zero-valued field here falls back to
// react's own default rather than zeroing it out.
func (c *Config) ReactConfig() react.Config {
	cfg := react.DefaultConfig()

	if c.MaxConcurrentRequests > 0 {
		cfg.MaxConcurrentRequests = c.MaxConcurrentRequests
	}
	if c.SaturationPolicy != "" {
		cfg.SaturationPolicy = react.SaturationPolicy(c.SaturationPolicy)
	}
	if c.RequestTimeoutMs > 0 {
		cfg.RequestTimeout = time.Duration(c.RequestTimeoutMs) * time.Millisecond
	}
	if c.ToolCallTimeoutMs > 0 {
		cfg.ToolCallTimeout = time.Duration(c.ToolCallTimeoutMs) * time.Millisecond
	}
	if c.MaxToolCalls > 0 {
		cfg.MaxToolCalls = c.MaxToolCalls
	}
	if c.ToolParallelism > 0 {
		cfg.ToolParallelism = c.ToolParallelism
	}
	if c.MaxContextWindowTokens > 0 {
		cfg.MaxContextWindowTokens = c.MaxContextWindowTokens
	}
	if c.OutputReserveTokens > 0 {
		cfg.OutputReserveTokens = c.OutputReserveTokens
	}
	cfg.CacheableTemperature = c.CacheableTemperature
	if c.MaxIterations > 0 {
		cfg.MaxIterations = c.MaxIterations
	}

	cfg.Breaker = c.BreakerConfig()
	cfg.Boundary = c.BoundaryConfig()
	cfg.Retry = retry.DefaultConfig()

	return cfg
}

// BreakerConfig adapts the loaded configuration to pkg/breaker.Config.
func (c *Config) BreakerConfig() breaker.Config {
	cfg := breaker.DefaultConfig()
	if c.FailureThreshold > 0 {
		cfg.FailureThreshold = c.FailureThreshold
	}
	if c.ResetTimeoutMs > 0 {
		cfg.ResetTimeout = time.Duration(c.ResetTimeoutMs) * time.Millisecond
	}
	if c.HalfOpenMaxCalls > 0 {
		cfg.HalfOpenMaxCalls = c.HalfOpenMaxCalls
	}
	return cfg
}

// BoundaryConfig adapts the loaded configuration to pkg/boundary.Config.
func (c *Config) BoundaryConfig() boundary.Config {
	mode := boundary.ModeWarn
	switch c.Boundary.OutputMinViolationMode {
	case "RETRY_ONCE":
		mode = boundary.ModeRetryOnce
	case "FAIL":
		mode = boundary.ModeFail
	}
	return boundary.Config{
		MaxChars: c.Boundary.OutputMaxChars,
		MinChars: c.Boundary.OutputMinChars,
		MinMode:  mode,
	}
}

// MemoryConfig adapts the loaded configuration to pkg/memory.Config.
func (c *Config) MemoryConfig() memory.Config {
	cfg := memory.DefaultConfig()
	if c.Summary.TriggerMessageCount > 0 {
		cfg.TriggerMessageCount = c.Summary.TriggerMessageCount
	}
	if c.Summary.RecentMessageCount > 0 {
		cfg.RecentMessageCount = c.Summary.RecentMessageCount
	}
	if c.MaxContextWindowTokens > 0 {
		cfg.MaxPromptTokens = c.MaxContextWindowTokens
	}
	return cfg
}

// WriterConfig adapts the loaded configuration to pkg/metrics.WriterConfig.
func (c *Config) WriterConfig() metrics.WriterConfig {
	cfg := metrics.DefaultWriterConfig()
	if c.FlushIntervalMs > 0 {
		cfg.DrainInterval = time.Duration(c.FlushIntervalMs) * time.Millisecond
	}
	if c.BatchSize > 0 {
		cfg.BatchSize = c.BatchSize
	}
	return cfg
}
