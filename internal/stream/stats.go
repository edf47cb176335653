package stream

import "time"

// Stats is a point-in-time snapshot of one supervisor's counters.
// Counters accumulate across sessions; Uptime and FPSReal describe
// the current session only.
type Stats struct {
	// Running indicates an active streaming session.
	Running bool

	// FramesExtracted counts frames published to the cell.
	FramesExtracted uint64

	// BytesRead counts raw bytes consumed from the process stdout.
	BytesRead uint64

	// BufferResets counts scan-buffer discards after the size cap was
	// exceeded without a frame boundary.
	BufferResets uint64

	// MarkerResyncs counts stray end markers skipped during scanning.
	MarkerResyncs uint64

	// FPSReal is the measured frame rate of the current session.
	FPSReal float64

	// Uptime of the current session, zero when never started.
	Uptime time.Duration

	// LastFrameAt is the publication time of the newest frame.
	LastFrameAt time.Time
}

// Stats returns current statistics. Safe to call concurrently with
// streaming; values are loaded atomically but the snapshot as a whole
// is not transactional.
func (s *Supervisor) Stats() Stats {
	st := Stats{
		Running:         s.running.Load(),
		FramesExtracted: s.frames.Load(),
		BytesRead:       s.bytesRead.Load(),
		BufferResets:    s.bufferResets.Load(),
		MarkerResyncs:   s.resyncs.Load(),
	}

	if nanos := s.startedAt.Load(); nanos != 0 {
		st.Uptime = time.Since(time.Unix(0, nanos))
		if secs := st.Uptime.Seconds(); secs > 0 {
			st.FPSReal = float64(st.FramesExtracted-s.framesAtStart.Load()) / secs
		}
	}

	if f := s.latest.load(); f != nil {
		st.LastFrameAt = f.Timestamp
	}

	return st
}
