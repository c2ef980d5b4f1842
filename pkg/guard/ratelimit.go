package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
)

// window is a monotonic wall-clock bucket counter for one quota period.
type window struct {
	bucket int64
	count  int
}

// RateLimitStage rejects requests once a subject (userId, falling back to
// tenantId) exceeds either its per-minute or per-hour quota. Buckets are
// keyed by floor(now / period) so counters reset deterministically without
// needing a background sweeper.
type RateLimitStage struct {
	order         int
	perMinute     int
	perHour       int
	mu            sync.Mutex
	minuteBuckets map[string]*window
	hourBuckets   map[string]*window
	now           func() time.Time
}

// NewRateLimitStage builds a rate-limit stage with the given per-minute and
// per-hour quotas. A zero quota disables that window.
func NewRateLimitStage(order, perMinute, perHour int) *RateLimitStage {
	return &RateLimitStage{
		order:         order,
		perMinute:     perMinute,
		perHour:       perHour,
		minuteBuckets: make(map[string]*window),
		hourBuckets:   make(map[string]*window),
		now:           time.Now,
	}
}

func (s *RateLimitStage) Name() string     { return "rateLimit" }
func (s *RateLimitStage) Order() int       { return s.order }
func (s *RateLimitStage) FailOnError() bool { return false }

func subjectOf(cmd corekit.AgentCommand) string {
	if cmd.UserID != "" {
		return "user:" + cmd.UserID
	}
	if cmd.TenantID != "" {
		return "tenant:" + cmd.TenantID
	}
	return "anonymous"
}

func (s *RateLimitStage) Check(_ context.Context, cmd corekit.AgentCommand) (Result, error) {
	subject := subjectOf(cmd)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.perMinute > 0 {
		bucket := now.Unix() / 60
		w := s.minuteBuckets[subject]
		if w == nil || w.bucket != bucket {
			w = &window{bucket: bucket}
			s.minuteBuckets[subject] = w
		}
		if w.count+1 > s.perMinute {
			return rejected(s.Name(), ReasonRateLimit, fmt.Sprintf("per-minute quota of %d exceeded", s.perMinute)), nil
		}
	}

	if s.perHour > 0 {
		bucket := now.Unix() / 3600
		w := s.hourBuckets[subject]
		if w == nil || w.bucket != bucket {
			w = &window{bucket: bucket}
			s.hourBuckets[subject] = w
		}
		if w.count+1 > s.perHour {
			return rejected(s.Name(), ReasonRateLimit, fmt.Sprintf("per-hour quota of %d exceeded", s.perHour)), nil
		}
	}

	// Both windows passed: commit the increments.
	if s.perMinute > 0 {
		bucket := now.Unix() / 60
		s.minuteBuckets[subject].count++
		_ = bucket
	}
	if s.perHour > 0 {
		s.hourBuckets[subject].count++
	}

	return allowed(), nil
}
