package boothcam

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/steveharris87/pibooth-libcamera-pi5/internal/render"
	"github.com/steveharris87/pibooth-libcamera-pi5/internal/still"
	"github.com/steveharris87/pibooth-libcamera-pi5/internal/stream"
)

// Defaults matching the camera stack shipped with Raspberry Pi OS.
const (
	DefaultVideoCommand = "rpicam-vid"
	DefaultStillCommand = "rpicam-still"
	DefaultPreviewWidth = 720
	DefaultFramerate    = 30
	DefaultFontPath     = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"
)

// Config is the complete adapter configuration. The zero value is not
// usable directly; run it through Validate or start from
// DefaultConfig.
type Config struct {
	Camera  CameraConfig  `yaml:"camera"`
	Stream  StreamConfig  `yaml:"stream"`
	Still   StillConfig   `yaml:"still"`
	Overlay OverlayConfig `yaml:"overlay"`
}

// CameraConfig selects the capture executables and geometry.
type CameraConfig struct {
	// VideoCommand is the MJPEG streaming executable.
	VideoCommand string `yaml:"video_command"`

	// StillCommand is the still capture executable.
	StillCommand string `yaml:"still_command"`

	// Resolution is the still capture size. The preview streams at a
	// reduced size derived from its aspect ratio.
	Resolution Resolution `yaml:"resolution"`

	// Framerate of the preview stream.
	Framerate int `yaml:"framerate"`

	// PreviewWidth is the fixed width of the preview stream; height
	// follows the capture aspect ratio.
	PreviewWidth int `yaml:"preview_width"`
}

// StreamConfig tunes the MJPEG reader.
type StreamConfig struct {
	// ReadChunkBytes is the stdout pipe read size.
	ReadChunkBytes int `yaml:"read_chunk_bytes"`

	// MaxBufferBytes caps the frame scan buffer; exceeding it without
	// a complete frame discards the accumulation.
	MaxBufferBytes int `yaml:"max_buffer_bytes"`

	// StopTimeoutMS bounds the graceful termination wait before the
	// video process is killed.
	StopTimeoutMS int `yaml:"stop_timeout_ms"`
}

// StillConfig tunes still capture.
type StillConfig struct {
	// SettleDelayMS is the pause between stopping the preview and
	// running the still executable.
	SettleDelayMS int `yaml:"settle_delay_ms"`
}

// OverlayConfig selects the typeface for preview text.
type OverlayConfig struct {
	// FontPath locates a TrueType or OpenType font file. A missing or
	// unreadable font falls back to a built-in face at render time.
	FontPath string `yaml:"font_path"`

	// FontSize in points.
	FontSize float64 `yaml:"font_size"`
}

// DefaultConfig returns a configuration for a stock Raspberry Pi
// photobooth: full HD stills, 720-wide preview, rpicam tooling.
func DefaultConfig() Config {
	return Config{
		Camera: CameraConfig{
			VideoCommand: DefaultVideoCommand,
			StillCommand: DefaultStillCommand,
			Resolution:   Resolution{Width: 1920, Height: 1080},
			Framerate:    DefaultFramerate,
			PreviewWidth: DefaultPreviewWidth,
		},
		Stream: StreamConfig{
			ReadChunkBytes: stream.DefaultChunkSize,
			MaxBufferBytes: stream.DefaultMaxBuffer,
			StopTimeoutMS:  int(stream.DefaultStopTimeout / time.Millisecond),
		},
		Still: StillConfig{
			SettleDelayMS: int(still.DefaultSettleDelay / time.Millisecond),
		},
		Overlay: OverlayConfig{
			FontPath: DefaultFontPath,
			FontSize: render.DefaultFontSize,
		},
	}
}

// LoadConfig reads a YAML configuration file, fills defaults for
// anything unset, and validates the result.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("boothcam: failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("boothcam: failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the configuration and fills defaults for
// zero-valued fields. Negative values are rejected rather than
// defaulted; they are always a mistake.
//
// New calls Validate itself, so a hand-built Config gets the same
// treatment as a loaded one.
func (c *Config) Validate() error {
	if c.Camera.Resolution.Width < 0 || c.Camera.Resolution.Height < 0 {
		return fmt.Errorf("boothcam: negative capture resolution %s", c.Camera.Resolution)
	}
	if (c.Camera.Resolution.Width == 0) != (c.Camera.Resolution.Height == 0) {
		return fmt.Errorf("boothcam: partial capture resolution %s", c.Camera.Resolution)
	}
	if c.Camera.Framerate < 0 {
		return fmt.Errorf("boothcam: negative framerate %d", c.Camera.Framerate)
	}
	if c.Camera.PreviewWidth < 0 {
		return fmt.Errorf("boothcam: negative preview width %d", c.Camera.PreviewWidth)
	}
	if c.Stream.ReadChunkBytes < 0 || c.Stream.MaxBufferBytes < 0 || c.Stream.StopTimeoutMS < 0 {
		return fmt.Errorf("boothcam: negative stream tunable")
	}
	if c.Still.SettleDelayMS < 0 {
		return fmt.Errorf("boothcam: negative settle delay %d", c.Still.SettleDelayMS)
	}
	if c.Overlay.FontSize < 0 {
		return fmt.Errorf("boothcam: negative font size %.1f", c.Overlay.FontSize)
	}

	if c.Camera.VideoCommand == "" {
		c.Camera.VideoCommand = DefaultVideoCommand
	}
	if c.Camera.StillCommand == "" {
		c.Camera.StillCommand = DefaultStillCommand
	}
	if c.Camera.Resolution.Width == 0 {
		c.Camera.Resolution = Resolution{Width: 1920, Height: 1080}
	}
	if c.Camera.Framerate == 0 {
		c.Camera.Framerate = DefaultFramerate
	}
	if c.Camera.PreviewWidth == 0 {
		c.Camera.PreviewWidth = DefaultPreviewWidth
	}
	if c.Stream.ReadChunkBytes == 0 {
		c.Stream.ReadChunkBytes = stream.DefaultChunkSize
	}
	if c.Stream.MaxBufferBytes == 0 {
		c.Stream.MaxBufferBytes = stream.DefaultMaxBuffer
	}
	if c.Stream.StopTimeoutMS == 0 {
		c.Stream.StopTimeoutMS = int(stream.DefaultStopTimeout / time.Millisecond)
	}
	if c.Still.SettleDelayMS == 0 {
		c.Still.SettleDelayMS = int(still.DefaultSettleDelay / time.Millisecond)
	}
	if c.Overlay.FontPath == "" {
		c.Overlay.FontPath = DefaultFontPath
	}
	if c.Overlay.FontSize == 0 {
		c.Overlay.FontSize = render.DefaultFontSize
	}

	return nil
}
