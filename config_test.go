package boothcam

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "zero config gets defaults",
			mutate: func(c *Config) {},
		},
		{
			name: "negative resolution",
			mutate: func(c *Config) {
				c.Camera.Resolution = Resolution{Width: -1920, Height: 1080}
			},
			wantErr: true,
			errMsg:  "negative capture resolution",
		},
		{
			name: "width without height",
			mutate: func(c *Config) {
				c.Camera.Resolution = Resolution{Width: 1920}
			},
			wantErr: true,
			errMsg:  "partial capture resolution",
		},
		{
			name: "negative framerate",
			mutate: func(c *Config) {
				c.Camera.Framerate = -5
			},
			wantErr: true,
			errMsg:  "negative framerate",
		},
		{
			name: "negative stream tunable",
			mutate: func(c *Config) {
				c.Stream.MaxBufferBytes = -1
			},
			wantErr: true,
			errMsg:  "negative stream tunable",
		},
		{
			name: "negative settle delay",
			mutate: func(c *Config) {
				c.Still.SettleDelayMS = -10
			},
			wantErr: true,
			errMsg:  "negative settle delay",
		},
		{
			name: "custom values survive validation",
			mutate: func(c *Config) {
				c.Camera.Resolution = Resolution{Width: 3280, Height: 2464}
				c.Camera.PreviewWidth = 640
				c.Stream.MaxBufferBytes = 1 << 20
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate() expected error containing %q, got nil", tt.errMsg)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Validate() error = %q, want error containing %q", err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}

			// Whatever the input, a valid config has no zero-valued
			// tunables left.
			if cfg.Camera.VideoCommand == "" || cfg.Camera.StillCommand == "" {
				t.Error("commands not defaulted")
			}
			if cfg.Camera.Resolution.Width <= 0 || cfg.Camera.Resolution.Height <= 0 {
				t.Error("resolution not defaulted")
			}
			if cfg.Stream.ReadChunkBytes <= 0 || cfg.Stream.MaxBufferBytes <= 0 || cfg.Stream.StopTimeoutMS <= 0 {
				t.Error("stream tunables not defaulted")
			}
			if cfg.Still.SettleDelayMS <= 0 {
				t.Error("settle delay not defaulted")
			}
			if cfg.Overlay.FontSize <= 0 {
				t.Error("font size not defaulted")
			}
		})
	}
}

func TestValidate_KeepsExplicitValues(t *testing.T) {
	cfg := Config{}
	cfg.Camera.PreviewWidth = 640
	cfg.Stream.MaxBufferBytes = 123456
	cfg.Still.SettleDelayMS = 200

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	if cfg.Camera.PreviewWidth != 640 {
		t.Errorf("PreviewWidth = %d, explicit value overwritten", cfg.Camera.PreviewWidth)
	}
	if cfg.Stream.MaxBufferBytes != 123456 {
		t.Errorf("MaxBufferBytes = %d, explicit value overwritten", cfg.Stream.MaxBufferBytes)
	}
	if cfg.Still.SettleDelayMS != 200 {
		t.Errorf("SettleDelayMS = %d, explicit value overwritten", cfg.Still.SettleDelayMS)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boothcam.yaml")

	yaml := `
camera:
  video_command: /usr/local/bin/rpicam-vid
  resolution:
    width: 3280
    height: 2464
  preview_width: 640
stream:
  max_buffer_bytes: 1048576
still:
  settle_delay_ms: 100
overlay:
  font_size: 72
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.Camera.VideoCommand != "/usr/local/bin/rpicam-vid" {
		t.Errorf("VideoCommand = %q", cfg.Camera.VideoCommand)
	}
	if cfg.Camera.StillCommand != DefaultStillCommand {
		t.Errorf("StillCommand = %q, want default %q", cfg.Camera.StillCommand, DefaultStillCommand)
	}
	if cfg.Camera.Resolution != (Resolution{Width: 3280, Height: 2464}) {
		t.Errorf("Resolution = %s", cfg.Camera.Resolution)
	}
	if cfg.Stream.MaxBufferBytes != 1048576 {
		t.Errorf("MaxBufferBytes = %d", cfg.Stream.MaxBufferBytes)
	}
	if cfg.Stream.ReadChunkBytes == 0 {
		t.Error("ReadChunkBytes not defaulted")
	}
	if cfg.Still.SettleDelayMS != 100 {
		t.Errorf("SettleDelayMS = %d", cfg.Still.SettleDelayMS)
	}
	if cfg.Overlay.FontSize != 72 {
		t.Errorf("FontSize = %.0f", cfg.Overlay.FontSize)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("LoadConfig() on a missing file returned nil error")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("camera: [unclosed"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Error("LoadConfig() on malformed yaml returned nil error")
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "invalid.yaml")
		if err := os.WriteFile(path, []byte("camera:\n  framerate: -30\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Error("LoadConfig() on invalid values returned nil error")
		}
	})
}

// TestPreviewSize pins the geometry: fixed width, aspect-derived
// height rounded to even.
func TestPreviewSize(t *testing.T) {
	tests := []struct {
		name  string
		res   Resolution
		width int
		wantW int
		wantH int
	}{
		{
			name:  "full HD to 720 wide",
			res:   Resolution{Width: 1920, Height: 1080},
			width: 720,
			wantW: 720,
			wantH: 406,
		},
		{
			name:  "4:3 sensor to 720 wide",
			res:   Resolution{Width: 1024, Height: 768},
			width: 720,
			wantW: 720,
			wantH: 540,
		},
		{
			name:  "8MP sensor to 640 wide",
			res:   Resolution{Width: 3280, Height: 2464},
			width: 640,
			wantW: 640,
			wantH: 482,
		},
		{
			name:  "square stays square",
			res:   Resolution{Width: 1000, Height: 1000},
			width: 500,
			wantW: 500,
			wantH: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := previewSize(tt.res, tt.width)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("previewSize(%s, %d) = %dx%d, want %dx%d",
					tt.res, tt.width, w, h, tt.wantW, tt.wantH)
			}
			if h%2 != 0 {
				t.Errorf("height %d is odd", h)
			}
		})
	}
}
