package boundary

import "testing"

func TestEnforceMax_TruncatesWithMarker(t *testing.T) {
	cfg := Config{MaxChars: 5}
	out := EnforceMax(cfg, "hello world")
	if out[:5] != "hello" {
		t.Fatalf("expected cut at 5 chars, got %q", out)
	}
	if out == "hello" {
		t.Fatal("expected a truncation marker appended")
	}
}

func TestEnforceMax_NoOpUnderLimit(t *testing.T) {
	cfg := Config{MaxChars: 100}
	if out := EnforceMax(cfg, "short"); out != "short" {
		t.Fatalf("expected unchanged, got %q", out)
	}
}

func TestEnforceMax_Disabled(t *testing.T) {
	cfg := Config{MaxChars: 0}
	if out := EnforceMax(cfg, "anything at all"); out != "anything at all" {
		t.Fatalf("expected unchanged when disabled, got %q", out)
	}
}

func TestEnforceMin_OKAboveThreshold(t *testing.T) {
	cfg := Config{MinChars: 5, MinMode: ModeFail}
	if got := EnforceMin(cfg, "hello world"); got != OutcomeOK {
		t.Fatalf("expected OutcomeOK, got %v", got)
	}
}

func TestEnforceMin_WarnModeReturnsDistinctOutcomeButNeverBlocks(t *testing.T) {
	cfg := Config{MinChars: 100, MinMode: ModeWarn}
	got := EnforceMin(cfg, "short")
	if got != OutcomeWarn {
		t.Fatalf("expected OutcomeWarn under WARN mode, got %v", got)
	}
	if got == OutcomeFail || got == OutcomeRetry {
		t.Fatalf("WARN mode must never fail or retry the turn, got %v", got)
	}
}

func TestEnforceMin_WarnModeAboveThresholdIsOK(t *testing.T) {
	cfg := Config{MinChars: 5, MinMode: ModeWarn}
	if got := EnforceMin(cfg, "hello world"); got != OutcomeOK {
		t.Fatalf("expected OutcomeOK when content meets the minimum, got %v", got)
	}
}

func TestEnforceMin_RetryOnceMode(t *testing.T) {
	cfg := Config{MinChars: 100, MinMode: ModeRetryOnce}
	if got := EnforceMin(cfg, "short"); got != OutcomeRetry {
		t.Fatalf("expected OutcomeRetry, got %v", got)
	}
}

func TestEnforceMin_FailMode(t *testing.T) {
	cfg := Config{MinChars: 100, MinMode: ModeFail}
	if got := EnforceMin(cfg, "short"); got != OutcomeFail {
		t.Fatalf("expected OutcomeFail, got %v", got)
	}
}
