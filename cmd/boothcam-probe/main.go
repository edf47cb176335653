// boothcam-probe exercises the full camera pipeline against the real
// rpicam stack: pre-warm, warmup measurement, live preview rendering,
// countdown, and still captures. Useful for verifying a booth's
// camera setup without running the whole application.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	boothcam "github.com/steveharris87/pibooth-libcamera-pi5"
)

const version = "v0.1.0"

// headlessWindow satisfies the display surface without a screen: it
// counts rendered frames and watches for interrupts inside the
// preview loop's event hook.
type headlessWindow struct {
	frames    atomic.Uint64
	interrupt chan os.Signal
	stopped   atomic.Bool
}

func (w *headlessWindow) ShowImage(img image.Image) *image.Rectangle {
	w.frames.Add(1)
	r := img.Bounds()
	return &r
}

func (w *headlessWindow) UpdateDisplay(rect image.Rectangle) {}

func (w *headlessWindow) Flip() {}

func (w *headlessWindow) ProcessEvents() {
	select {
	case <-w.interrupt:
		w.stopped.Store(true)
	default:
	}
}

func main() {
	configPath := flag.String("config", "", "YAML configuration file (optional)")
	resolution := flag.String("resolution", "", "Capture resolution as WxH, e.g. 1920x1080")
	previewWidth := flag.Int("preview-width", 0, "Preview stream width in pixels")
	videoCmd := flag.String("video-cmd", "", "Video streaming executable override")
	stillCmd := flag.String("still-cmd", "", "Still capture executable override")
	duration := flag.Duration("duration", 10*time.Second, "Live preview duration")
	countdown := flag.Duration("countdown", 3*time.Second, "Countdown duration before capture")
	captures := flag.Int("captures", 1, "Number of still captures to take")
	outputDir := flag.String("output", "", "Directory to save captures (optional)")
	warmupDur := flag.Duration("warmup", 3*time.Second, "Warmup measurement window (0 to skip)")
	flip := flag.Bool("flip", true, "Mirror the preview horizontally")
	debug := flag.Bool("debug", false, "Enable debug logging")
	jsonLog := flag.Bool("json", false, "Log in JSON format")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("boothcam-probe %s\n", version)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if *jsonLog {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	cfg := boothcam.DefaultConfig()
	if *configPath != "" {
		loaded, err := boothcam.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	if *resolution != "" {
		res, err := parseResolution(*resolution)
		if err != nil {
			log.Fatalf("Invalid resolution: %v", err)
		}
		cfg.Camera.Resolution = res
	}
	if *previewWidth > 0 {
		cfg.Camera.PreviewWidth = *previewWidth
	}
	if *videoCmd != "" {
		cfg.Camera.VideoCommand = *videoCmd
	}
	if *stillCmd != "" {
		cfg.Camera.StillCommand = *stillCmd
	}

	if *outputDir != "" {
		if err := os.MkdirAll(*outputDir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	cam, err := boothcam.New(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to create camera: %v", err)
	}

	pw, ph := cam.PreviewSize()

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║                  Booth Camera Probe                       ║\n")
	fmt.Printf("║                    Version %s                          ║\n", version)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Video Command:  %s\n", cfg.Camera.VideoCommand)
	fmt.Printf("  Still Command:  %s\n", cfg.Camera.StillCommand)
	fmt.Printf("  Resolution:     %s\n", cfg.Camera.Resolution)
	fmt.Printf("  Preview:        %dx%d @ %d fps\n", pw, ph, cfg.Camera.Framerate)
	fmt.Printf("  Captures:       %d\n", *captures)
	if *outputDir != "" {
		fmt.Printf("  Output Dir:     %s\n", *outputDir)
	} else {
		fmt.Printf("  Output Dir:     (working directory, finals skipped)\n")
	}
	fmt.Printf("\n")

	interrupt := make(chan os.Signal, 4)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	win := &headlessWindow{interrupt: interrupt}

	fmt.Printf("Pre-warming camera...\n")
	cam.Prewarm()

	if *warmupDur > 0 {
		fmt.Printf("Measuring frame rate (%s)...\n", *warmupDur)
		stats, err := cam.Warmup(context.Background(), *warmupDur)
		if err != nil {
			slog.Error("Warmup failed, continuing anyway", "error", err)
		} else {
			fmt.Printf("\n")
			fmt.Printf("╭─────────────────────────────────────────────────────────╮\n")
			fmt.Printf("│ Warmup Complete\n")
			fmt.Printf("├─────────────────────────────────────────────────────────┤\n")
			fmt.Printf("│ Frames Observed:    %6d frames\n", stats.Frames)
			fmt.Printf("│ FPS Mean:           %6.2f fps\n", stats.FPSMean)
			fmt.Printf("│ FPS StdDev:         %6.2f fps\n", stats.FPSStdDev)
			fmt.Printf("│ FPS Range:          %6.1f - %.1f fps\n", stats.FPSMin, stats.FPSMax)
			fmt.Printf("│ Jitter Mean:        %6.3f s\n", stats.JitterMean)
			fmt.Printf("│ Stable:             %6v\n", stats.Stable)
			fmt.Printf("╰─────────────────────────────────────────────────────────╯\n")
			fmt.Printf("\n")
			if !stats.Stable {
				fmt.Printf("⚠  Frame cadence is unstable; preview may look choppy\n\n")
			}
		}
	}

	fmt.Printf("Running live preview for %s (Ctrl+C to stop early)...\n", *duration)
	cam.Preview(win, *flip)

	statsCtx, stopStats := context.WithCancel(context.Background())
	defer stopStats()
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-statsCtx.Done():
				return
			case <-ticker.C:
				st := cam.Stats()
				slog.Info("Stream statistics",
					"frames", st.FramesExtracted,
					"fps", fmt.Sprintf("%.1f", st.FPSReal),
					"rendered", st.FramesRendered,
					"buffer_resets", st.BufferResets,
					"mb_read", fmt.Sprintf("%.1f", float64(st.BytesRead)/1024/1024),
				)
			}
		}
	}()

	// The preview loop runs in one-second slices so an interrupt
	// seen by the event hook takes effect quickly.
	remaining := *duration
	for remaining > 0 && !win.stopped.Load() {
		slice := time.Second
		if remaining < slice {
			slice = remaining
		}
		cam.PreviewWait(slice)
		remaining -= slice
	}

	saved := 0
	if !win.stopped.Load() {
		for i := 0; i < *captures; i++ {
			fmt.Printf("\nCountdown before capture %d/%d...\n", i+1, *captures)
			cam.PreviewCountdown(*countdown)

			target := ""
			if *outputDir != "" {
				target = filepath.Join(*outputDir, fmt.Sprintf("probe_%d_%d.jpg", time.Now().Unix(), i+1))
			}
			cam.Capture(target)

			// Back to live preview between captures, the way a booth
			// session would.
			if i+1 < *captures {
				cam.Preview(win, *flip)
				cam.PreviewWait(time.Second)
			}
		}

		for _, entry := range cam.Captures() {
			marker := ""
			if entry.Placeholder {
				marker = " (placeholder - capture failed)"
			}
			fmt.Printf("Capture %s: %d bytes%s\n", entry.TraceID[:8], len(entry.Data), marker)

			if *outputDir == "" {
				continue
			}
			final, err := cam.ProcessCapture(entry, *flip)
			if err != nil {
				slog.Error("Post-processing failed", "trace_id", entry.TraceID, "error", err)
				continue
			}
			path := strings.TrimSuffix(entry.Path, ".jpg") + "_final.jpg"
			if err := saveJPEG(path, final); err != nil {
				slog.Error("Failed to save final picture", "path", path, "error", err)
				continue
			}
			saved++
		}
	}

	cam.StopPreview()
	cam.Quit()

	st := cam.Stats()
	fmt.Printf("\n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("                     Final Statistics                      \n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("  Frames Extracted:    %d\n", st.FramesExtracted)
	fmt.Printf("  Frames Rendered:     %d\n", st.FramesRendered)
	fmt.Printf("  Frames Displayed:    %d\n", win.frames.Load())
	fmt.Printf("  Decode Failures:     %d\n", st.DecodeFailures)
	fmt.Printf("  Placeholder Frames:  %d\n", st.PlaceholderFrames)
	fmt.Printf("  Buffer Resets:       %d\n", st.BufferResets)
	fmt.Printf("  Bytes Read:          %.2f MB\n", float64(st.BytesRead)/1024/1024)
	fmt.Printf("  Average FPS:         %.2f\n", st.FPSReal)
	fmt.Printf("  Captures:            %d (%d placeholder)\n", st.Captures, st.PlaceholderCaptures)
	if *outputDir != "" {
		fmt.Printf("  Finals Saved:        %d\n", saved)
	}
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("\n")

	if win.stopped.Load() {
		fmt.Printf("Interrupted.\n")
	}
	slog.Info("Probe completed")
}

// parseResolution parses "WxH" into a Resolution.
func parseResolution(s string) (boothcam.Resolution, error) {
	var res boothcam.Resolution
	if _, err := fmt.Sscanf(s, "%dx%d", &res.Width, &res.Height); err != nil {
		return res, fmt.Errorf("want WxH, e.g. 1920x1080: %w", err)
	}
	if res.Width <= 0 || res.Height <= 0 {
		return res, fmt.Errorf("dimensions must be positive, got %s", res)
	}
	return res, nil
}

// saveJPEG writes img to path at high quality.
func saveJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 92}); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return nil
}
