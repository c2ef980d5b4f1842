package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
)

type stubStage struct {
	name        string
	order       int
	failOnError bool
	result      Result
	err         error
}

func (s stubStage) Name() string      { return s.name }
func (s stubStage) Order() int        { return s.order }
func (s stubStage) FailOnError() bool { return s.failOnError }
func (s stubStage) Check(context.Context, corekit.AgentCommand) (Result, error) {
	return s.result, s.err
}

func TestPipeline_FirstRejectionShortCircuits(t *testing.T) {
	var ranSecond bool
	stageA := stubStage{name: "a", order: 1, result: rejected("a", ReasonValidation, "nope")}
	stageB := stubStage{name: "b", order: 2, result: allowed()}
	p := NewPipeline(stageA, countingStage{stageB, &ranSecond})

	res := p.Check(context.Background(), corekit.AgentCommand{})
	if res.Allowed {
		t.Fatal("expected rejection")
	}
	if res.Stage != "a" {
		t.Fatalf("expected stage a, got %s", res.Stage)
	}
	if ranSecond {
		t.Fatal("second stage should not have run")
	}
}

type countingStage struct {
	stubStage
	ran *bool
}

func (c countingStage) Check(ctx context.Context, cmd corekit.AgentCommand) (Result, error) {
	*c.ran = true
	return c.stubStage.Check(ctx, cmd)
}

func TestPipeline_OrderingRespected(t *testing.T) {
	var seen []string
	mk := func(name string, order int) Stage {
		return orderRecorder{name: name, order: order, seen: &seen}
	}
	p := NewPipeline(mk("second", 2), mk("first", 1), mk("third", 3))
	p.Check(context.Background(), corekit.AgentCommand{})
	want := []string{"first", "second", "third"}
	if len(seen) != len(want) {
		t.Fatalf("got %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("got %v, want %v", seen, want)
		}
	}
}

type orderRecorder struct {
	name  string
	order int
	seen  *[]string
}

func (o orderRecorder) Name() string      { return o.name }
func (o orderRecorder) Order() int        { return o.order }
func (o orderRecorder) FailOnError() bool { return false }
func (o orderRecorder) Check(context.Context, corekit.AgentCommand) (Result, error) {
	*o.seen = append(*o.seen, o.name)
	return allowed(), nil
}

func TestPipeline_FailOnErrorFalse_SwallowsAndContinues(t *testing.T) {
	failing := stubStage{name: "flaky", order: 1, failOnError: false, err: errors.New("boom")}
	ok := stubStage{name: "ok", order: 2, result: allowed()}
	p := NewPipeline(failing, ok)

	res := p.Check(context.Background(), corekit.AgentCommand{})
	if !res.Allowed {
		t.Fatalf("expected allowed, got rejected at %s", res.Stage)
	}
}

func TestPipeline_FailOnErrorTrue_RejectsClosed(t *testing.T) {
	failing := stubStage{name: "strict", order: 1, failOnError: true, err: errors.New("boom")}
	p := NewPipeline(failing)

	res := p.Check(context.Background(), corekit.AgentCommand{})
	if res.Allowed {
		t.Fatal("expected fail-closed rejection")
	}
}

func TestRateLimitStage_PerMinuteQuota(t *testing.T) {
	stage := NewRateLimitStage(1, 2, 0)
	fixed := time.Unix(1_700_000_000, 0)
	stage.now = func() time.Time { return fixed }

	cmd := corekit.AgentCommand{UserID: "u1"}
	for i := 0; i < 2; i++ {
		res, err := stage.Check(context.Background(), cmd)
		if err != nil || !res.Allowed {
			t.Fatalf("attempt %d should be allowed, got %+v err=%v", i, res, err)
		}
	}
	res, err := stage.Check(context.Background(), cmd)
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatal("third request in the same minute should be rejected")
	}
	if res.Category != ReasonRateLimit {
		t.Fatalf("expected RATE_LIMIT category, got %s", res.Category)
	}
}

func TestRateLimitStage_ResetsNextBucket(t *testing.T) {
	stage := NewRateLimitStage(1, 1, 0)
	t0 := time.Unix(1_700_000_000, 0)
	stage.now = func() time.Time { return t0 }
	cmd := corekit.AgentCommand{UserID: "u1"}

	if res, _ := stage.Check(context.Background(), cmd); !res.Allowed {
		t.Fatal("first request should be allowed")
	}
	if res, _ := stage.Check(context.Background(), cmd); res.Allowed {
		t.Fatal("second request in same minute should be rejected")
	}

	stage.now = func() time.Time { return t0.Add(61 * time.Second) }
	if res, _ := stage.Check(context.Background(), cmd); !res.Allowed {
		t.Fatal("request in the next minute bucket should be allowed")
	}
}

func TestInputValidationStage(t *testing.T) {
	stage := NewInputValidationStage(1, 5)
	res, err := stage.Check(context.Background(), corekit.AgentCommand{UserPrompt: "123456"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatal("expected rejection for over-limit prompt")
	}

	res, err = stage.Check(context.Background(), corekit.AgentCommand{UserPrompt: "ok"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed {
		t.Fatal("expected allowed for under-limit prompt")
	}
}

func TestInjectionDetectionStage(t *testing.T) {
	stage, err := NewInjectionDetectionStage(1, DefaultInjectionPatterns())
	if err != nil {
		t.Fatal(err)
	}
	res, err := stage.Check(context.Background(), corekit.AgentCommand{UserPrompt: "please rm -rf / now"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatal("expected rejection")
	}
	if res.Category != ReasonInjection {
		t.Fatalf("expected INJECTION category, got %s", res.Category)
	}

	res, err = stage.Check(context.Background(), corekit.AgentCommand{UserPrompt: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed {
		t.Fatal("expected allowed")
	}
}

type stubAuthorizer struct {
	ok     bool
	reason string
	err    error
}

func (s stubAuthorizer) Authorize(context.Context, corekit.AgentCommand) (bool, string, error) {
	return s.ok, s.reason, s.err
}

func TestPermissionStage(t *testing.T) {
	stage := NewPermissionStage(1, stubAuthorizer{ok: false, reason: "unauthorized"})
	res, err := stage.Check(context.Background(), corekit.AgentCommand{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed || res.Message != "unauthorized" {
		t.Fatalf("expected unauthorized rejection, got %+v", res)
	}
}
