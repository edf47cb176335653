// Package still runs the still-capture executable and post-processes
// its output into the final picture.
//
// Same philosophy as the preview stream: the external tool is allowed
// to fail, the booth session is not. A capture that goes wrong
// produces a placeholder picture and a log line, never an error the
// host has to handle mid-session.
package still

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/steveharris87/pibooth-libcamera-pi5/internal/imaging"
)

// DefaultSettleDelay gives the camera device time to come free after
// the preview stream is torn down. The sensor cannot be held by two
// processes at once.
const DefaultSettleDelay = 50 * time.Millisecond

// Config contains settings for still capture.
type Config struct {
	// Command is the still executable, e.g. "rpicam-still".
	Command string

	// Width and Height select the capture resolution in pixels.
	Width  int
	Height int

	// SettleDelay is the pause before each capture, letting the
	// device settle after the preview process released it.
	SettleDelay time.Duration
}

// Result is the outcome of one capture attempt. Data is always a
// decodable JPEG, real or placeholder.
type Result struct {
	// Data holds the picture bytes.
	Data []byte

	// Path is where the executable was asked to write the picture.
	Path string

	// TraceID correlates this capture across log lines.
	TraceID string

	// TakenAt is when the capture was attempted.
	TakenAt time.Time

	// Placeholder is true when the capture failed and Data holds the
	// synthesized black picture instead.
	Placeholder bool
}

// Controller shells out to the still executable, one capture at a
// time.
type Controller struct {
	cfg Config

	captures     atomic.Uint64
	placeholders atomic.Uint64
}

// New validates cfg and returns a Controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("still: command is required")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("still: invalid capture size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	return &Controller{cfg: cfg}, nil
}

// DefaultTargetPath names a capture file in the working directory,
// timestamped to the second.
func DefaultTargetPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return filepath.Join(cwd, fmt.Sprintf("cap_%d.jpg", time.Now().Unix()))
}

// Take runs the still executable and returns the captured picture.
//
// The caller must have stopped the preview stream first; Take waits
// the settle delay and assumes the device is free. When the
// executable is missing, exits nonzero, or leaves no readable file
// behind, the result carries a synthesized solid-black JPEG of the
// configured size instead. Every call yields exactly one result.
func (c *Controller) Take(target string) Result {
	time.Sleep(c.cfg.SettleDelay)

	res := Result{
		Path:    target,
		TraceID: uuid.New().String(),
		TakenAt: time.Now(),
	}

	args := []string{
		"-o", target,
		"-n",
		"-t", "1",
		"--immediate",
		"--width", strconv.Itoa(c.cfg.Width),
		"--height", strconv.Itoa(c.cfg.Height),
	}

	slog.Info("still: capturing",
		"command", c.cfg.Command,
		"target", target,
		"trace_id", res.TraceID,
	)

	cmd := exec.Command(c.cfg.Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		slog.Error("still: capture command failed",
			"error", err,
			"stderr", strings.TrimSpace(stderr.String()),
			"trace_id", res.TraceID,
		)
		return c.placeholderResult(res)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		slog.Error("still: capture file unreadable",
			"path", target,
			"error", err,
			"trace_id", res.TraceID,
		)
		return c.placeholderResult(res)
	}

	slog.Info("still: captured",
		"path", target,
		"bytes", len(data),
		"trace_id", res.TraceID,
	)

	res.Data = data
	c.captures.Add(1)
	return res
}

// placeholderResult swaps in the synthesized black picture so the
// session continues with something printable.
func (c *Controller) placeholderResult(res Result) Result {
	res.Data = c.placeholderJPEG()
	res.Placeholder = true
	c.captures.Add(1)
	c.placeholders.Add(1)
	return res
}

func (c *Controller) placeholderJPEG() []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, imaging.Black(c.cfg.Width, c.cfg.Height), nil); err != nil {
		// Encoding an in-memory image to an in-memory buffer does not
		// fail in practice; log it if it ever does.
		slog.Error("still: placeholder encode failed", "error", err)
	}
	return buf.Bytes()
}

// Stats is a point-in-time snapshot of capture counters.
type Stats struct {
	// Captures counts Take calls, successful or not.
	Captures uint64

	// Placeholders counts captures that fell back to the synthesized
	// black picture.
	Placeholders uint64
}

// Stats returns current statistics.
func (c *Controller) Stats() Stats {
	return Stats{
		Captures:     c.captures.Load(),
		Placeholders: c.placeholders.Load(),
	}
}
