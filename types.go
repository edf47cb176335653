package boothcam

import (
	"fmt"
	"image"
	"time"
)

// Resolution is a capture size in pixels.
type Resolution struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// String returns "WxH".
func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// AspectRatio returns width over height.
func (r Resolution) AspectRatio() float64 {
	if r.Height == 0 {
		return 0
	}
	return float64(r.Width) / float64(r.Height)
}

// Window is the host's display surface. The camera drives it during
// preview; the host owns its lifetime.
//
// ShowImage blits a full preview image and returns the region that
// changed, or nil when the host cannot tell. UpdateDisplay pushes a
// partial region to the screen, Flip pushes the whole surface, and
// ProcessEvents gives the host UI loop a turn. The camera calls
// ProcessEvents on every preview iteration, so a busy countdown never
// starves the host's input handling.
type Window interface {
	ShowImage(img image.Image) *image.Rectangle
	UpdateDisplay(rect image.Rectangle)
	Flip()
	ProcessEvents()
}

// Translator resolves user-facing text keys, such as the "smile"
// prompt flashed at the end of a countdown, into display strings.
type Translator interface {
	TranslatedText(key string) string
}

// keyTranslator is the fallback Translator: it returns the key
// itself. Hosts wanting localized prompts supply their own.
type keyTranslator struct{}

func (keyTranslator) TranslatedText(key string) string { return key }

// CaptureEntry is one picture in the capture buffer.
type CaptureEntry struct {
	// Data holds the JPEG bytes, real or placeholder.
	Data []byte

	// Path is where the still executable was asked to write.
	Path string

	// TraceID correlates the capture across log lines.
	TraceID string

	// TakenAt is when the capture was attempted.
	TakenAt time.Time

	// Placeholder is true when the capture failed and Data holds a
	// synthesized black picture.
	Placeholder bool
}
