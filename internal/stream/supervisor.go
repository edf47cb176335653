// Package stream runs the video subprocess and turns its MJPEG output
// into a stream of published frames.
//
// The design follows the rpicam toolchain's contract: the process
// writes raw MJPEG to stdout, frame boundaries are discovered by
// scanning for JPEG markers, and the newest complete frame is always
// available to the renderer through a lock-free cell. The process is
// disposable; it is spawned for a preview session and terminated,
// forcefully if needed, when the session ends or the sensor is needed
// for a still capture.
package stream

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// Defaults for the stream tunables, matching the behavior of the
// reference capture tools on Raspberry Pi OS.
const (
	DefaultChunkSize   = 32768
	DefaultMaxBuffer   = 500000
	DefaultStopTimeout = 500 * time.Millisecond
	DefaultFramerate   = 30
)

// Config contains settings for one video streaming session.
type Config struct {
	// Command is the streaming executable, e.g. "rpicam-vid".
	Command string

	// Width and Height select the stream resolution in pixels.
	Width  int
	Height int

	// Framerate in frames per second. Zero selects DefaultFramerate.
	Framerate int

	// ChunkSize is the read size for the stdout pipe.
	ChunkSize int

	// MaxBuffer caps the scan buffer. When the buffer grows past it
	// without yielding a frame the whole accumulation is discarded,
	// which recovers from a corrupted stream at the cost of the bytes
	// dropped.
	MaxBuffer int

	// StopTimeout bounds the graceful-termination wait before the
	// process is killed outright.
	StopTimeout time.Duration
}

// Supervisor owns the video subprocess and the reader goroutine that
// extracts frames from its stdout.
//
// Start spawns both, Stop tears both down. Both are idempotent and
// safe from any state, including before the first Start. Failures
// never escape: a camera that cannot stream degrades to an empty
// frame cell, and the caller keeps rendering placeholders.
type Supervisor struct {
	cfg Config

	mu       sync.Mutex
	cmd      *exec.Cmd
	procDone chan struct{}
	wg       sync.WaitGroup

	running       atomic.Bool
	startedAt     atomic.Int64  // unix nanos of the current session start
	framesAtStart atomic.Uint64 // frame counter value when the session began
	latest        frameCell

	frames       atomic.Uint64
	bytesRead    atomic.Uint64
	bufferResets atomic.Uint64
	resyncs      atomic.Uint64
}

// New validates cfg, fills defaults for zero-valued tunables, and
// returns a Supervisor. No process is spawned until Start.
func New(cfg Config) (*Supervisor, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("stream: command is required")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("stream: invalid stream size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Framerate <= 0 {
		cfg.Framerate = DefaultFramerate
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.MaxBuffer <= 0 {
		cfg.MaxBuffer = DefaultMaxBuffer
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	return &Supervisor{cfg: cfg}, nil
}

// Start spawns the streaming process and the reader goroutines.
//
// No-op when a session is already running, so a pre-warmed stream is
// reused instead of restarted. Spawn failures are logged and leave
// the supervisor stopped; they are never returned, because the
// preview path must keep going with whatever it has.
func (s *Supervisor) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return
	}

	args := []string{
		"-t", "0",
		"--codec", "mjpeg",
		"-n",
		"--width", strconv.Itoa(s.cfg.Width),
		"--height", strconv.Itoa(s.cfg.Height),
		"--framerate", strconv.Itoa(s.cfg.Framerate),
		"--inline",
		"-o", "-",
	}

	cmd := exec.Command(s.cfg.Command, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		slog.Error("stream: failed to open stdout pipe", "error", err)
		return
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		slog.Error("stream: failed to open stderr pipe", "error", err)
		return
	}

	slog.Info("stream: starting video process",
		"command", s.cfg.Command,
		"size", fmt.Sprintf("%dx%d", s.cfg.Width, s.cfg.Height),
		"framerate", s.cfg.Framerate,
	)

	if err := cmd.Start(); err != nil {
		slog.Error("stream: failed to start video process",
			"command", s.cfg.Command,
			"error", err,
		)
		return
	}

	s.cmd = cmd
	s.procDone = make(chan struct{})
	s.startedAt.Store(time.Now().UnixNano())
	s.framesAtStart.Store(s.frames.Load())
	s.running.Store(true)

	s.wg.Add(3)
	go s.readLoop(stdout)
	go s.drainStderr(stderr)
	go s.waitProcess(cmd, s.procDone)

	slog.Debug("stream: video process started", "pid", cmd.Process.Pid)
}

// Stop terminates the streaming session.
//
// Termination is best effort: SIGTERM first, then SIGKILL when the
// process has not exited within StopTimeout. Every error along the
// way is swallowed and logged, because a stuck camera process must
// not take the session down with it. Idempotent - safe to call
// multiple times, and before any Start.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running.Store(false)

	if s.cmd != nil {
		pid := s.cmd.Process.Pid
		slog.Info("stream: stopping video process", "pid", pid)

		if err := s.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			slog.Debug("stream: terminate signal failed", "pid", pid, "error", err)
		}

		select {
		case <-s.procDone:
		case <-time.After(s.cfg.StopTimeout):
			slog.Warn("stream: video process ignored terminate, killing", "pid", pid)
			if err := s.cmd.Process.Kill(); err != nil {
				slog.Debug("stream: kill failed", "pid", pid, "error", err)
			}
		}

		s.cmd = nil
		s.procDone = nil
	}

	// Bounded wait for the goroutines; they exit on their own once
	// the pipes close behind the dead process.
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Debug("stream: stopped")
	case <-time.After(2 * time.Second):
		slog.Warn("stream: reader goroutines still draining after stop")
	}
}

// Running reports whether a streaming session is active. It turns
// false on Stop and also when the stream ends on its own, e.g. the
// process died or closed its stdout.
func (s *Supervisor) Running() bool {
	return s.running.Load()
}

// Latest returns the most recently extracted frame, or nil when none
// has been published yet. The frame may be stale once streaming has
// stopped; for a preview that beats having nothing to show.
func (s *Supervisor) Latest() *Frame {
	return s.latest.load()
}

// waitProcess reaps the child so it cannot linger as a zombie, and
// records how the session ended. It is the only caller of Wait.
func (s *Supervisor) waitProcess(cmd *exec.Cmd, done chan struct{}) {
	defer s.wg.Done()
	defer close(done)

	err := cmd.Wait()
	switch {
	case err == nil:
		slog.Debug("stream: video process exited cleanly", "pid", cmd.Process.Pid)
	case s.running.Load():
		slog.Error("stream: video process exited unexpectedly", "pid", cmd.Process.Pid, "error", err)
	default:
		slog.Debug("stream: video process exited", "pid", cmd.Process.Pid, "error", err)
	}
}

// drainStderr forwards diagnostics from the video process. rpicam-vid
// is chatty on startup, so everything lands at debug level and a
// healthy session stays quiet.
func (s *Supervisor) drainStderr(r io.Reader) {
	defer s.wg.Done()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		slog.Debug("stream: video process stderr", "line", scanner.Text())
	}
}
