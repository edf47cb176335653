// Package render turns raw JPEG frames into preview images: decode,
// mirror, overlay text.
//
// The renderer never fails. A preview that stutters or momentarily
// shows black is tolerable; a preview that propagates errors into the
// host UI loop is not. Every failure path here degrades to a solid
// black image of the preview size.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"sync/atomic"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/steveharris87/pibooth-libcamera-pi5/internal/imaging"
)

// DefaultFontSize matches the countdown digits used by the reference
// booth layout.
const DefaultFontSize = 100

// shadowOffset is the drop shadow displacement in pixels, down and to
// the right of the text.
const shadowOffset = 4

// Config contains settings for a preview renderer.
type Config struct {
	// Width and Height are the preview dimensions, used to size the
	// black placeholder when no frame is available.
	Width  int
	Height int

	// FontPath locates a TrueType or OpenType font for overlay text.
	// Empty selects the built-in fixed-size face.
	FontPath string

	// FontSize in points. Zero selects DefaultFontSize.
	FontSize float64
}

// Renderer composes preview images from decoded frames and overlay
// text. Safe for use from a single render loop; the counters may be
// read concurrently through Stats.
type Renderer struct {
	width  int
	height int
	face   font.Face

	rendered       atomic.Uint64
	decodeFailures atomic.Uint64
	placeholders   atomic.Uint64
}

// New validates cfg and loads the overlay typeface.
func New(cfg Config) (*Renderer, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("render: invalid preview size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FontSize <= 0 {
		cfg.FontSize = DefaultFontSize
	}

	return &Renderer{
		width:  cfg.Width,
		height: cfg.Height,
		face:   loadFace(cfg.FontPath, cfg.FontSize),
	}, nil
}

// Render produces the next preview image from a raw JPEG frame.
//
// A nil or undecodable frame yields a solid black image of the
// preview size. A decoded frame keeps its own dimensions. The flip
// mirrors horizontally, matching what people expect from a booth
// screen they are posing in front of. Overlay text, when non-empty,
// is centered with a small drop shadow.
func (r *Renderer) Render(frame []byte, overlay string, flip bool) image.Image {
	r.rendered.Add(1)

	img := r.decode(frame)
	if flip {
		img = imaging.FlipHorizontal(img)
	}
	if overlay != "" {
		r.drawOverlay(img, overlay)
	}
	return img
}

func (r *Renderer) decode(frame []byte) *image.RGBA {
	if len(frame) == 0 {
		r.placeholders.Add(1)
		return imaging.Black(r.width, r.height)
	}

	img, err := jpeg.Decode(bytes.NewReader(frame))
	if err != nil {
		r.decodeFailures.Add(1)
		r.placeholders.Add(1)
		slog.Debug("render: frame decode failed", "error", err, "bytes", len(frame))
		return imaging.Black(r.width, r.height)
	}

	return imaging.ToRGBA(img)
}

// drawOverlay centers text on img and draws it twice: a black copy
// offset down-right as a drop shadow, then the white text on top.
// Centering uses the glyph bounding box, not the advance width, so
// short strings like "3" sit visually centered.
func (r *Renderer) drawOverlay(img *image.RGBA, text string) {
	bounds, _ := font.BoundString(r.face, text)
	textW := (bounds.Max.X - bounds.Min.X).Ceil()
	textH := (bounds.Max.Y - bounds.Min.Y).Ceil()

	b := img.Bounds()
	dot := fixed.Point26_6{
		X: fixed.I((b.Dx()-textW)/2) - bounds.Min.X,
		Y: fixed.I((b.Dy()-textH)/2) - bounds.Min.Y,
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: r.face,
		Dot: fixed.Point26_6{
			X: dot.X + fixed.I(shadowOffset),
			Y: dot.Y + fixed.I(shadowOffset),
		},
	}
	d.DrawString(text)

	d.Src = image.White
	d.Dot = dot
	d.DrawString(text)
}

// Stats is a point-in-time snapshot of renderer counters.
type Stats struct {
	// Rendered counts Render calls.
	Rendered uint64

	// DecodeFailures counts frames that were not valid JPEG.
	DecodeFailures uint64

	// Placeholders counts black images returned in place of a frame.
	Placeholders uint64
}

// Stats returns current statistics.
func (r *Renderer) Stats() Stats {
	return Stats{
		Rendered:       r.rendered.Load(),
		DecodeFailures: r.decodeFailures.Load(),
		Placeholders:   r.placeholders.Load(),
	}
}
