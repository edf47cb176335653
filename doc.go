// Package boothcam adapts the Raspberry Pi rpicam command-line tools
// to a photobooth application: live MJPEG preview with overlay text,
// countdowns, and still captures.
//
// The camera stack is driven entirely through external executables.
// rpicam-vid streams MJPEG to a pipe for the preview; rpicam-still
// takes the actual pictures. The adapter owns spawning, reading, and
// terminating those processes so the host application never touches
// them.
//
// # Quick Start
//
//	cfg := boothcam.DefaultConfig()
//	cfg.Camera.Resolution = boothcam.Resolution{Width: 1920, Height: 1080}
//
//	cam, err := boothcam.New(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cam.Quit()
//
//	cam.Preview(window, true)                  // live mirror preview
//	cam.PreviewCountdown(3 * time.Second)      // 3... 2... 1... smile
//	cam.Capture("")                            // one picture, default path
//
//	for _, entry := range cam.Captures() {
//	    final, _ := cam.ProcessCapture(entry, true)
//	    save(final)
//	}
//
// # Features
//
//   - MJPEG preview via rpicam-vid with marker-scan frame extraction
//   - Lock-free latest-frame handoff between reader and render loop
//   - Countdown and prompt overlays with drop shadow, TrueType fonts
//   - Still capture via rpicam-still with placeholder fallback
//   - Center-crop and Catmull-Rom resize post-processing
//   - Pre-warming to hide process spawn latency behind UI transitions
//   - Frame rate warmup measurement with stability verdict
//   - Telemetry for every stage via Stats()
//
// # Failure Policy
//
// Construction validates eagerly and is the only place errors
// surface. After that the adapter never raises: a dead video process
// means black preview frames, a failed capture means a black
// placeholder picture, and everything is logged. A booth with people
// in front of it must keep the session moving.
//
// # Threading
//
// The host drives preview and capture from its UI loop; one internal
// goroutine reads the video stream. The two meet at atomically
// swapped values (newest frame, overlay text), so neither blocks the
// other. All public methods are safe to call from the UI loop;
// Stats() is safe from any goroutine.
//
// # Dependencies
//
// The rpicam tools ship with Raspberry Pi OS (Bookworm and later):
//
//	rpicam-vid --version
//	rpicam-still --version
//
// On older installs the tools are named libcamera-vid and
// libcamera-still; point Camera.VideoCommand and Camera.StillCommand
// at them.
//
// Overlay text prefers a DejaVu bold face:
//
//	sudo apt-get install fonts-dejavu-core
//
// A missing font is not fatal; a built-in face takes over.
//
// # Testing
//
// A command-line probe exercises the full pipeline against the real
// camera stack:
//
//	go build ./cmd/boothcam-probe
//	./boothcam-probe -duration 10s -output ./shots
//
// See cmd/boothcam-probe for flags.
//
// # Limitations
//
//   - One camera per adapter; no multi-sensor support
//   - Preview and still capture are mutually exclusive, the sensor
//     belongs to one process at a time
//   - JPEG input only for captures; the stream must be MJPEG
package boothcam
