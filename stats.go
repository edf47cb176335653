package boothcam

import "time"

// CameraStats is a point-in-time snapshot across the whole adapter:
// the stream reader, the renderer, and the capture controller.
type CameraStats struct {
	// PreviewRunning indicates an active video stream.
	PreviewRunning bool

	// FramesExtracted counts frames pulled out of the video stream.
	FramesExtracted uint64

	// BytesRead counts raw bytes consumed from the video process.
	BytesRead uint64

	// BufferResets counts scan-buffer discards during desync
	// recovery.
	BufferResets uint64

	// MarkerResyncs counts stray frame trailers skipped while
	// scanning.
	MarkerResyncs uint64

	// FPSReal is the measured frame rate of the current stream
	// session.
	FPSReal float64

	// LastFrameAt is the extraction time of the newest frame.
	LastFrameAt time.Time

	// FramesRendered counts preview render calls.
	FramesRendered uint64

	// DecodeFailures counts frames that were not decodable JPEG.
	DecodeFailures uint64

	// PlaceholderFrames counts black images rendered in place of a
	// frame.
	PlaceholderFrames uint64

	// Captures counts still capture attempts.
	Captures uint64

	// PlaceholderCaptures counts captures that fell back to the
	// synthesized black picture.
	PlaceholderCaptures uint64

	// BufferedCaptures is the current capture buffer length.
	BufferedCaptures int
}

// WarmupStats summarizes a frame rate measurement window.
type WarmupStats struct {
	// Frames observed during the window.
	Frames int

	// Duration of the measurement.
	Duration time.Duration

	// FPSMean is frames divided by duration.
	FPSMean float64

	// FPSStdDev is the standard deviation of the instantaneous rate.
	FPSStdDev float64

	// FPSMin and FPSMax bound the instantaneous rate.
	FPSMin float64
	FPSMax float64

	// JitterMean and JitterMax describe inter-frame interval
	// deviation from the expected cadence, in seconds.
	JitterMean float64
	JitterMax  float64

	// Stable reports whether rate variance and jitter both sit
	// within tolerance.
	Stable bool
}

// Stats returns current statistics. Safe to call concurrently with a
// running preview.
func (c *Camera) Stats() CameraStats {
	ss := c.supervisor.Stats()
	rs := c.renderer.Stats()
	cs := c.still.Stats()

	c.mu.Lock()
	buffered := len(c.captures)
	c.mu.Unlock()

	return CameraStats{
		PreviewRunning:      ss.Running,
		FramesExtracted:     ss.FramesExtracted,
		BytesRead:           ss.BytesRead,
		BufferResets:        ss.BufferResets,
		MarkerResyncs:       ss.MarkerResyncs,
		FPSReal:             ss.FPSReal,
		LastFrameAt:         ss.LastFrameAt,
		FramesRendered:      rs.Rendered,
		DecodeFailures:      rs.DecodeFailures,
		PlaceholderFrames:   rs.Placeholders,
		Captures:            cs.Captures,
		PlaceholderCaptures: cs.Placeholders,
		BufferedCaptures:    buffered,
	}
}
