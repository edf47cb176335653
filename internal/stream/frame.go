package stream

import (
	"sync/atomic"
	"time"
)

// Frame is one complete JPEG image extracted from the video stream.
//
// Data is immutable after publication: the extractor copies the frame
// bytes out of its scan buffer before storing, so a consumer may hold
// a Frame indefinitely without coordinating with the reader goroutine.
type Frame struct {
	// Seq is a monotonic sequence number, starting at 1. Gaps are
	// impossible; a consumer comparing Seq values can tell how many
	// frames it skipped.
	Seq uint64

	// Timestamp records when the frame was extracted.
	Timestamp time.Time

	// TraceID correlates this frame across log lines.
	TraceID string

	// Data holds the full JPEG, start marker through end marker.
	Data []byte
}

// frameCell is a single-slot handoff for the newest complete frame.
//
// The producer swaps whole frames in, the consumer loads whatever is
// newest, and intermediate frames are lost on purpose. A live preview
// only ever wants the most recent picture; queueing old ones would
// just add latency. No locks: a load observes either nil or a fully
// published frame, never a torn one.
type frameCell struct {
	p atomic.Pointer[Frame]
}

func (c *frameCell) store(f *Frame) { c.p.Store(f) }

func (c *frameCell) load() *Frame { return c.p.Load() }
