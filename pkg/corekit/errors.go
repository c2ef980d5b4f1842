package corekit

// Error codes surfaced to callers. These are stable strings,
// not Go error types, so they can travel through AgentResult.ErrorCode and
// across process boundaries unchanged.
const (
	ErrGuardRejected        = "GUARD_REJECTED"
	ErrHookRejected         = "HOOK_REJECTED"
	ErrOverloaded           = "OVERLOADED"
	ErrQueueTimeout         = "QUEUE_TIMEOUT"
	ErrTimeout              = "TIMEOUT"
	ErrCircuitBreakerOpen   = "CIRCUIT_BREAKER_OPEN"
	ErrOutputGuardRejected  = "OUTPUT_GUARD_REJECTED"
	ErrOutputTooShort       = "OUTPUT_TOO_SHORT"
	ErrInvalidResponse      = "INVALID_RESPONSE"
	ErrToolFailed           = "TOOL_FAILED"
	ErrLLMFailed            = "LLM_FAILED"
)
