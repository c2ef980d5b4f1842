package metrics

import (
	"sync"
	"testing"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
)

func TestRingBuffer_PublishDrainOrder(t *testing.T) {
	rb := NewRingBuffer(64)
	for i := 0; i < 10; i++ {
		if !rb.Publish(corekit.ExecutionEvent{ErrorCode: string(rune('a' + i))}) {
			t.Fatalf("publish %d should not drop", i)
		}
	}

	drained := rb.Drain(10)
	if len(drained) != 10 {
		t.Fatalf("expected 10 drained events, got %d", len(drained))
	}
	for i, ev := range drained {
		exec := ev.(corekit.ExecutionEvent)
		if exec.ErrorCode != string(rune('a'+i)) {
			t.Fatalf("out of order drain at %d: got %q", i, exec.ErrorCode)
		}
	}
}

func TestRingBuffer_RoundsCapacityToPowerOfTwo(t *testing.T) {
	rb := NewRingBuffer(100)
	if len(rb.slots) != 128 {
		t.Fatalf("expected rounded capacity 128, got %d", len(rb.slots))
	}
}

func TestRingBuffer_DropsWhenFull(t *testing.T) {
	rb := NewRingBuffer(64)
	for i := 0; i < 64; i++ {
		if !rb.Publish(corekit.ExecutionEvent{}) {
			t.Fatalf("unexpected drop at %d", i)
		}
	}
	if rb.Publish(corekit.ExecutionEvent{}) {
		t.Fatal("expected publish to a full buffer to report false")
	}
	if rb.Dropped() != 1 {
		t.Fatalf("expected 1 dropped event, got %d", rb.Dropped())
	}
}

func TestRingBuffer_DrainThenPublishReusesSlots(t *testing.T) {
	rb := NewRingBuffer(64)
	for i := 0; i < 64; i++ {
		rb.Publish(corekit.ExecutionEvent{})
	}
	rb.Drain(64)
	for i := 0; i < 64; i++ {
		if !rb.Publish(corekit.ExecutionEvent{}) {
			t.Fatalf("expected reused slot to accept publish %d", i)
		}
	}
}

func TestRingBuffer_ConcurrentProducersNoLoss(t *testing.T) {
	rb := NewRingBuffer(4096)
	const producers = 16
	const perProducer = 200

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				rb.Publish(corekit.ToolCallEvent{Name: "search"})
			}
		}()
	}
	wg.Wait()

	drained := rb.Drain(producers * perProducer)
	if len(drained) != producers*perProducer {
		t.Fatalf("expected %d events, drained %d (dropped=%d)", producers*perProducer, len(drained), rb.Dropped())
	}
}
