// Package boundary enforces the output-size contract on a final agent
// response: a hard maximum that always truncates, and a
// soft minimum whose violation is handled according to a configurable mode.
package boundary

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MinLengthMode selects how a too-short final response is handled.
type MinLengthMode string

const (
	// ModeWarn logs the violation but returns the response unchanged.
	ModeWarn MinLengthMode = "WARN"
	// ModeRetryOnce asks the caller to retry the ReAct loop exactly once
	// before falling back to WARN behavior.
	ModeRetryOnce MinLengthMode = "RETRY_ONCE"
	// ModeFail rejects the response outright.
	ModeFail MinLengthMode = "FAIL"
)

// Config bounds acceptable response length.
type Config struct {
	MaxChars int
	MinChars int
	MinMode  MinLengthMode
}

// Outcome is what EnforceMin decided.
type Outcome int

const (
	// OutcomeOK means the response satisfied the minimum, or no minimum is
	// configured.
	OutcomeOK Outcome = iota
	// OutcomeWarn means the response was under the minimum but the mode is
	// WARN: the turn is never blocked, but the caller should record the
	// violation (log it, count it) rather than treat it as OutcomeOK.
	OutcomeWarn
	// OutcomeRetry means the caller should retry the ReAct loop once.
	OutcomeRetry
	// OutcomeFail means the caller should fail the turn.
	OutcomeFail
)

// EnforceMax truncates content to MaxChars (rune-safe), appending a marker
// when truncation occurred. A non-positive MaxChars disables the check.
func EnforceMax(cfg Config, content string) string {
	if cfg.MaxChars <= 0 || len(content) <= cfg.MaxChars {
		return content
	}
	cut := cfg.MaxChars
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + fmt.Sprintf("\n\n[TRUNCATED: response exceeded %d characters]", cfg.MaxChars)
}

// EnforceMin reports how a response that came in under MinChars should be
// handled, per the configured MinMode. It never mutates content itself —
// ModeRetryOnce's retry is the caller's responsibility (pkg/react owns the
// loop), and ModeWarn returns a distinct OutcomeWarn so the caller can log
// or count the violation instead of silently treating it as OutcomeOK.
func EnforceMin(cfg Config, content string) Outcome {
	if cfg.MinChars <= 0 {
		return OutcomeOK
	}
	if len([]rune(strings.TrimSpace(content))) >= cfg.MinChars {
		return OutcomeOK
	}
	switch cfg.MinMode {
	case ModeRetryOnce:
		return OutcomeRetry
	case ModeFail:
		return OutcomeFail
	case ModeWarn:
		return OutcomeWarn
	default:
		return OutcomeOK
	}
}
