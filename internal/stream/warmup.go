package stream

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"
)

const (
	// fpsStabilityThreshold is the maximum allowed FPS standard
	// deviation as a fraction of the mean. 30 FPS mean is considered
	// stable while stddev stays under 4.5 FPS.
	fpsStabilityThreshold = 0.15

	// jitterStabilityThreshold is the maximum allowed mean jitter as
	// a fraction of the expected inter-frame interval.
	jitterStabilityThreshold = 0.20

	// warmupPollInterval is how often the frame cell is sampled. It
	// must stay well under the inter-frame interval at the target
	// rate or frames would be missed between polls.
	warmupPollInterval = 5 * time.Millisecond
)

// RateStats summarizes frame throughput measured over a warmup
// window.
type RateStats struct {
	// Frames observed during the window.
	Frames int

	// Duration of the measurement.
	Duration time.Duration

	// FPSMean is the overall rate: frames divided by duration.
	FPSMean float64

	// FPSStdDev is the standard deviation of the instantaneous rate.
	FPSStdDev float64

	// FPSMin and FPSMax bound the instantaneous rate.
	FPSMin float64
	FPSMax float64

	// JitterMean and JitterMax describe the deviation of inter-frame
	// intervals from the expected interval, in seconds.
	JitterMean float64
	JitterMax  float64

	// Stable is true when the rate variance and jitter are both
	// within tolerance. An unstable preview is still usable, it just
	// looks choppy; callers decide what to do with the verdict.
	Stable bool
}

// Warmup samples the stream for the given duration and reports frame
// rate statistics. It blocks for the whole window.
//
// Call it after Start, typically during pre-warm, to verify that the
// camera delivers frames at the expected cadence before a session
// goes live. Errors are returned only for measurement problems: the
// stream is not running, it dies mid-window, the context is
// cancelled, or fewer than two frames arrive. A choppy-but-alive
// stream is reported, not rejected.
func (s *Supervisor) Warmup(ctx context.Context, duration time.Duration) (*RateStats, error) {
	if !s.running.Load() {
		return nil, fmt.Errorf("stream: not running")
	}

	slog.Info("stream: starting warmup", "duration", duration)

	start := time.Now()
	frameTimes := make([]time.Time, 0, 256)

	var lastSeq uint64
	if f := s.latest.load(); f != nil {
		lastSeq = f.Seq
	}

	ticker := time.NewTicker(warmupPollInterval)
	defer ticker.Stop()
	deadline := time.After(duration)

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("stream: warmup cancelled: %w", ctx.Err())

		case <-deadline:
			goto analyze

		case <-ticker.C:
			if !s.running.Load() {
				return nil, fmt.Errorf("stream: stream ended during warmup")
			}
			if f := s.latest.load(); f != nil && f.Seq != lastSeq {
				lastSeq = f.Seq
				frameTimes = append(frameTimes, f.Timestamp)
			}
		}
	}

analyze:
	elapsed := time.Since(start)

	if len(frameTimes) < 2 {
		return nil, fmt.Errorf("stream: not enough frames during warmup (got %d, need at least 2)", len(frameTimes))
	}

	stats := calculateRateStats(frameTimes, elapsed)

	slog.Info("stream: warmup complete",
		"frames", stats.Frames,
		"fps_mean", fmt.Sprintf("%.2f", stats.FPSMean),
		"fps_range", fmt.Sprintf("%.1f-%.1f", stats.FPSMin, stats.FPSMax),
		"stable", stats.Stable,
	)

	return stats, nil
}

// calculateRateStats derives rate statistics from frame publication
// timestamps collected over totalDuration.
//
// The instantaneous rate of each inter-frame interval feeds the
// min/max and standard deviation; jitter is the absolute deviation of
// each interval from the expected one. Stability requires both the
// rate stddev and the mean jitter to sit inside their thresholds.
func calculateRateStats(frameTimes []time.Time, totalDuration time.Duration) *RateStats {
	n := len(frameTimes)
	stats := &RateStats{
		Frames:   n,
		Duration: totalDuration,
	}
	if n == 0 {
		return stats
	}

	stats.FPSMean = float64(n) / totalDuration.Seconds()

	instant := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		if interval := frameTimes[i].Sub(frameTimes[i-1]).Seconds(); interval > 0 {
			instant = append(instant, 1.0/interval)
		}
	}
	if len(instant) == 0 {
		return stats
	}

	stats.FPSMin = instant[0]
	stats.FPSMax = instant[0]
	var sumSquares float64
	for _, fps := range instant {
		if fps < stats.FPSMin {
			stats.FPSMin = fps
		}
		if fps > stats.FPSMax {
			stats.FPSMax = fps
		}
		diff := fps - stats.FPSMean
		sumSquares += diff * diff
	}
	stats.FPSStdDev = math.Sqrt(sumSquares / float64(len(instant)))

	expectedInterval := 1.0 / stats.FPSMean
	var jitterSum float64
	count := 0
	for i := 1; i < n; i++ {
		jitter := math.Abs(frameTimes[i].Sub(frameTimes[i-1]).Seconds() - expectedInterval)
		jitterSum += jitter
		if jitter > stats.JitterMax {
			stats.JitterMax = jitter
		}
		count++
	}
	stats.JitterMean = jitterSum / float64(count)

	fpsStable := stats.FPSStdDev < stats.FPSMean*fpsStabilityThreshold
	jitterStable := stats.JitterMean < expectedInterval*jitterStabilityThreshold
	stats.Stable = fpsStable && jitterStable

	return stats
}
