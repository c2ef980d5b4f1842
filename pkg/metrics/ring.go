// Package metrics implements async metric ingestion: a lock-free
// multi-producer single-consumer ring buffer fed by every request path, and
// a background drainer that batches and persists the events it reads off
// the buffer. Producers never block on I/O; a full buffer
// drops the oldest-contended slot rather than stalling the agent run.
package metrics

import (
	"sync/atomic"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
)

// RingBuffer is a fixed-capacity, lock-free MPSC queue of MetricEvent.
// Capacity must be a power of two; NewRingBuffer rounds up if it isn't.
//
// The slot protocol is the classic Vyukov bounded MPMC queue narrowed to a
// single consumer: each slot carries a sequence number. A producer CASes the
// write cursor, spins until the slot's sequence matches its turn, stores the
// event, then publishes by bumping the slot's sequence. The single consumer
// reads slots in order, validates the sequence, and bumps it forward by the
// full capacity so the slot is ready for its next wrap.
type RingBuffer struct {
	mask  uint64
	slots []slot

	writeCursor atomic.Uint64
	readCursor  atomic.Uint64

	dropped atomic.Uint64
}

type slot struct {
	seq   atomic.Uint64
	event corekit.MetricEvent
}

// NewRingBuffer constructs a buffer with at least the requested capacity,
// rounded up to the next power of two, with a floor of 64.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 64 {
		capacity = 64
	}
	size := nextPowerOfTwo(capacity)

	rb := &RingBuffer{
		mask:  uint64(size - 1),
		slots: make([]slot, size),
	}
	for i := range rb.slots {
		rb.slots[i].seq.Store(uint64(i))
	}
	return rb
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Publish enqueues an event without blocking. It returns false if the
// buffer is full (the consumer hasn't caught up), in which case the caller
// should count the drop and move on — metric loss is preferable to request
// latency.
func (rb *RingBuffer) Publish(ev corekit.MetricEvent) bool {
	for {
		pos := rb.writeCursor.Load()
		s := &rb.slots[pos&rb.mask]
		seq := s.seq.Load()

		diff := int64(seq) - int64(pos)
		switch {
		case diff == 0:
			if rb.writeCursor.CompareAndSwap(pos, pos+1) {
				s.event = ev
				s.seq.Store(pos + 1)
				return true
			}
			// lost the race with another producer; retry
		case diff < 0:
			// consumer hasn't freed this slot yet: buffer is full
			rb.dropped.Add(1)
			return false
		default:
			// another producer already claimed and is mid-publish; retry
		}
	}
}

// Drain removes up to max events from the buffer, in FIFO order, and returns
// them. It must only ever be called from a single goroutine (the drainer) —
// the buffer is MPSC, not MPMC.
func (rb *RingBuffer) Drain(max int) []corekit.MetricEvent {
	out := make([]corekit.MetricEvent, 0, max)
	for len(out) < max {
		pos := rb.readCursor.Load()
		s := &rb.slots[pos&rb.mask]
		seq := s.seq.Load()

		diff := int64(seq) - int64(pos+1)
		if diff != 0 {
			break // nothing new published since the last drain
		}
		ev := s.event
		s.event = nil
		s.seq.Store(pos + uint64(len(rb.slots)))
		rb.readCursor.Store(pos + 1)
		out = append(out, ev)
	}
	return out
}

// Dropped returns the cumulative count of events lost to a full buffer.
func (rb *RingBuffer) Dropped() uint64 { return rb.dropped.Load() }

// Len returns an instantaneous estimate of queued-but-undrained events; it
// is advisory only (both cursors move concurrently with this read).
func (rb *RingBuffer) Len() int {
	w := rb.writeCursor.Load()
	r := rb.readCursor.Load()
	if w < r {
		return 0
	}
	return int(w - r)
}
