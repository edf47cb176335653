package still

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/steveharris87/pibooth-libcamera-pi5/internal/imaging"
)

// Process turns a decoded capture into the final picture: center-crop
// to the target aspect ratio, resize to exactly targetW x targetH
// with Catmull-Rom resampling, and optionally mirror horizontally.
//
// The crop runs first so the resize never distorts. A 16:9 sensor
// frame headed for a 4:3 print loses its left and right strips, not
// its proportions.
func Process(src image.Image, targetW, targetH int, mirror bool) *image.RGBA {
	crop := cropForRatio(src.Bounds(), targetW, targetH)

	out := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	xdraw.CatmullRom.Scale(out, out.Bounds(), src, crop, xdraw.Src, nil)

	if mirror {
		out = imaging.FlipHorizontal(out)
	}
	return out
}

// cropForRatio computes the largest centered sub-rectangle of b with
// the targetW:targetH aspect ratio.
func cropForRatio(b image.Rectangle, targetW, targetH int) image.Rectangle {
	w, h := b.Dx(), b.Dy()

	// Cross-multiplied comparison of w/h against targetW/targetH
	// keeps this in integer math.
	if w*targetH > h*targetW {
		cropW := h * targetW / targetH
		x0 := b.Min.X + (w-cropW)/2
		return image.Rect(x0, b.Min.Y, x0+cropW, b.Max.Y)
	}

	cropH := w * targetH / targetW
	y0 := b.Min.Y + (h-cropH)/2
	return image.Rect(b.Min.X, y0, b.Max.X, y0+cropH)
}
