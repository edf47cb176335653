package boothcam

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/steveharris87/pibooth-libcamera-pi5/internal/render"
	"github.com/steveharris87/pibooth-libcamera-pi5/internal/still"
	"github.com/steveharris87/pibooth-libcamera-pi5/internal/stream"
)

// Camera adapts the rpicam command-line tools to a photobooth
// session: live preview with overlay text, countdowns, and still
// captures.
//
// Threading model: the host's UI loop calls the preview and capture
// methods; one internal goroutine reads the video stream. They meet
// at an atomically swapped frame cell and an atomically swapped
// overlay string, so neither side ever waits on the other.
//
// Once constructed, a Camera never returns errors. Process failures,
// undecodable frames, and failed captures degrade to placeholders and
// log lines. A booth session keeps going; somebody is standing in
// front of it.
type Camera struct {
	cfg        Config
	translator Translator

	supervisor *stream.Supervisor
	renderer   *render.Renderer
	still      *still.Controller

	previewW int
	previewH int

	overlay atomic.Value // string

	mu       sync.Mutex
	window   Window
	flip     bool
	captures []CaptureEntry
}

// New builds a Camera from cfg. The configuration is validated and
// defaulted first; tr may be nil, in which case prompt keys are shown
// untranslated.
//
// Construction is the one place errors surface. Catch a broken
// configuration before the session starts, not during it.
func New(cfg Config, tr Translator) (*Camera, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pw, ph := previewSize(cfg.Camera.Resolution, cfg.Camera.PreviewWidth)

	sup, err := stream.New(stream.Config{
		Command:     cfg.Camera.VideoCommand,
		Width:       pw,
		Height:      ph,
		Framerate:   cfg.Camera.Framerate,
		ChunkSize:   cfg.Stream.ReadChunkBytes,
		MaxBuffer:   cfg.Stream.MaxBufferBytes,
		StopTimeout: time.Duration(cfg.Stream.StopTimeoutMS) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("boothcam: %w", err)
	}

	rend, err := render.New(render.Config{
		Width:    pw,
		Height:   ph,
		FontPath: cfg.Overlay.FontPath,
		FontSize: cfg.Overlay.FontSize,
	})
	if err != nil {
		return nil, fmt.Errorf("boothcam: %w", err)
	}

	stillCtl, err := still.New(still.Config{
		Command:     cfg.Camera.StillCommand,
		Width:       cfg.Camera.Resolution.Width,
		Height:      cfg.Camera.Resolution.Height,
		SettleDelay: time.Duration(cfg.Still.SettleDelayMS) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("boothcam: %w", err)
	}

	if tr == nil {
		tr = keyTranslator{}
	}

	c := &Camera{
		cfg:        cfg,
		translator: tr,
		supervisor: sup,
		renderer:   rend,
		still:      stillCtl,
		previewW:   pw,
		previewH:   ph,
	}
	c.overlay.Store("")

	slog.Info("boothcam: camera adapter ready",
		"resolution", cfg.Camera.Resolution.String(),
		"preview", fmt.Sprintf("%dx%d", pw, ph),
		"video_command", cfg.Camera.VideoCommand,
		"still_command", cfg.Camera.StillCommand,
	)

	return c, nil
}

// previewSize derives the preview dimensions: the configured width,
// and a height following the capture aspect ratio rounded to the
// nearest integer, bumped to even because video pipelines reject odd
// heights.
func previewSize(res Resolution, width int) (int, int) {
	h := int(math.Round(float64(width) / res.AspectRatio()))
	if h%2 != 0 {
		h++
	}
	return width, h
}

// PreviewSize returns the preview dimensions in pixels. Hosts size
// their preview surface with this before the first frame arrives.
func (c *Camera) PreviewSize() (int, int) {
	return c.previewW, c.previewH
}

// Preview binds the camera to a window and shows one live frame,
// starting the video stream if it is not already running. A stream
// left running by Prewarm is reused, which is the point of
// pre-warming.
//
// flip mirrors the preview horizontally so people see themselves as
// in a mirror. It affects the preview only, not captures.
func (c *Camera) Preview(w Window, flip bool) {
	c.mu.Lock()
	c.window = w
	c.flip = flip
	c.mu.Unlock()

	c.supervisor.Start()
	c.showFrame(w)
}

// PreviewCountdown renders the live preview with a centered countdown
// for the given duration, then flashes the translated "smile" prompt.
//
// The countdown busy-polls: every iteration renders the newest frame,
// gives the host's event loop a turn, and pushes whatever region
// changed. The displayed number is seconds remaining rounded up, so a
// 3 second countdown shows 3, 2, 1 and never 0.
func (c *Camera) PreviewCountdown(timeout time.Duration) {
	w := c.currentWindow()
	if w == nil {
		slog.Warn("boothcam: countdown requested without an active preview")
		return
	}

	// A non-positive timeout skips straight to the smile prompt.
	deadline := time.Now().Add(timeout)
	shown := ""
	for time.Now().Before(deadline) {
		remaining := strconv.Itoa(int(time.Until(deadline).Seconds()) + 1)
		if remaining != shown {
			shown = remaining
			c.overlay.Store(remaining)
		}

		rect := c.showFrame(w)
		w.ProcessEvents()
		if rect != nil {
			w.UpdateDisplay(*rect)
		}
	}

	c.overlay.Store(c.translator.TranslatedText("smile"))
	c.showFrame(w)
	w.ProcessEvents()
	w.Flip()
}

// PreviewWait keeps the live preview on screen for the given
// duration without touching the overlay.
func (c *Camera) PreviewWait(timeout time.Duration) {
	w := c.currentWindow()
	if w == nil {
		slog.Warn("boothcam: preview wait requested without an active preview")
		return
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		rect := c.showFrame(w)
		w.ProcessEvents()
		if rect != nil {
			w.UpdateDisplay(*rect)
		}
	}
}

// StopPreview clears the overlay, halts the video stream, and
// releases the window. Idempotent - safe to call multiple times, and
// without a preview running.
func (c *Camera) StopPreview() {
	c.overlay.Store("")
	c.supervisor.Stop()

	c.mu.Lock()
	c.window = nil
	c.mu.Unlock()
}

// Capture takes one still picture and appends it to the capture
// buffer.
//
// The video stream is stopped first so the still executable can open
// the sensor. target is where the executable writes; empty selects a
// timestamped file in the working directory. Exactly one entry lands
// in the buffer per call: a failed capture appends a black
// placeholder picture instead of raising. The overlay is cleared
// either way.
func (c *Camera) Capture(target string) {
	c.supervisor.Stop()

	if target == "" {
		target = still.DefaultTargetPath()
	}

	res := c.still.Take(target)

	c.mu.Lock()
	c.captures = append(c.captures, CaptureEntry{
		Data:        res.Data,
		Path:        res.Path,
		TraceID:     res.TraceID,
		TakenAt:     res.TakenAt,
		Placeholder: res.Placeholder,
	})
	c.mu.Unlock()

	c.overlay.Store("")
}

// Captures returns a snapshot of the capture buffer in capture
// order.
func (c *Camera) Captures() []CaptureEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]CaptureEntry, len(c.captures))
	copy(out, c.captures)
	return out
}

// DropCaptures empties the capture buffer. Hosts call it after
// assembling the final picture from the session's captures.
func (c *Camera) DropCaptures() {
	c.mu.Lock()
	c.captures = nil
	c.mu.Unlock()
}

// ProcessCapture turns one capture into the final picture: decode,
// center-crop to the capture resolution's aspect ratio, resize to
// exactly that resolution, and optionally mirror to match a mirrored
// preview.
func (c *Camera) ProcessCapture(e CaptureEntry, mirror bool) (image.Image, error) {
	img, err := jpeg.Decode(bytes.NewReader(e.Data))
	if err != nil {
		return nil, fmt.Errorf("boothcam: capture %s is not decodable: %w", e.TraceID, err)
	}

	res := c.cfg.Camera.Resolution
	return still.Process(img, res.Width, res.Height, mirror), nil
}

// Prewarm starts the video stream ahead of the first preview, hiding
// the process spawn and sensor wake-up latency inside the host's
// screen transition. Harmless if the stream is already running.
func (c *Camera) Prewarm() {
	slog.Info("boothcam: pre-warming camera")
	c.supervisor.Start()
}

// Warmup measures the preview frame rate over the given window and
// reports whether the cadence is stable. The stream must be running;
// start it with Prewarm or Preview first.
func (c *Camera) Warmup(ctx context.Context, duration time.Duration) (*WarmupStats, error) {
	st, err := c.supervisor.Warmup(ctx, duration)
	if err != nil {
		return nil, fmt.Errorf("boothcam: %w", err)
	}
	return &WarmupStats{
		Frames:     st.Frames,
		Duration:   st.Duration,
		FPSMean:    st.FPSMean,
		FPSStdDev:  st.FPSStdDev,
		FPSMin:     st.FPSMin,
		FPSMax:     st.FPSMax,
		JitterMean: st.JitterMean,
		JitterMax:  st.JitterMax,
		Stable:     st.Stable,
	}, nil
}

// Quit releases the camera. The video process is the only resource
// worth releasing; captures stay readable afterwards. Idempotent -
// safe to call multiple times.
func (c *Camera) Quit() {
	slog.Info("boothcam: quitting camera adapter")
	c.supervisor.Stop()
}

// PreviewRunning reports whether the video stream is currently
// active.
func (c *Camera) PreviewRunning() bool {
	return c.supervisor.Running()
}

func (c *Camera) currentWindow() Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}

// showFrame renders the newest frame with the current overlay and
// pushes it to the window.
func (c *Camera) showFrame(w Window) *image.Rectangle {
	if w == nil {
		return nil
	}

	var data []byte
	if f := c.supervisor.Latest(); f != nil {
		data = f.Data
	}

	c.mu.Lock()
	flip := c.flip
	c.mu.Unlock()

	overlay, _ := c.overlay.Load().(string)
	return w.ShowImage(c.renderer.Render(data, overlay, flip))
}
