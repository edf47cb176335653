package render

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(Config{Width: 720, Height: 406})
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	return r
}

// encodeJPEG renders a small test pattern: left half red, right half
// blue, so mirroring is observable.
func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.Set(x, y, color.RGBA{R: 255, A: 255})
			} else {
				img.Set(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return buf.Bytes()
}

func TestNew_FailFast(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "valid", cfg: Config{Width: 720, Height: 406}},
		{name: "zero width", cfg: Config{Height: 406}, wantErr: true},
		{name: "negative height", cfg: Config{Width: 720, Height: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestRender_NeverFails throws every bad input at Render and expects
// a usable image back each time, sized to the preview dimensions.
func TestRender_NeverFails(t *testing.T) {
	r := newTestRenderer(t)

	tests := []struct {
		name  string
		frame []byte
	}{
		{name: "nil frame", frame: nil},
		{name: "empty frame", frame: []byte{}},
		{name: "random bytes", frame: []byte{0x00, 0x01, 0x02, 0xfe, 0xba, 0xbe}},
		{name: "truncated jpeg", frame: encodeJPEG(t, 64, 64)[:40]},
		{name: "markers only", frame: []byte{0xff, 0xd8, 0xff, 0xd9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := r.Render(tt.frame, "3", true)
			if img == nil {
				t.Fatal("Render() returned nil image")
			}
			b := img.Bounds()
			if b.Dx() != 720 || b.Dy() != 406 {
				t.Errorf("placeholder size = %dx%d, want 720x406", b.Dx(), b.Dy())
			}
		})
	}

	st := r.Stats()
	if st.Rendered != uint64(len(tests)) {
		t.Errorf("Rendered = %d, want %d", st.Rendered, len(tests))
	}
	if st.Placeholders != uint64(len(tests)) {
		t.Errorf("Placeholders = %d, want %d", st.Placeholders, len(tests))
	}
}

// TestRender_ValidFrameKeepsItsSize verifies a decodable frame is not
// forced into the preview dimensions.
func TestRender_ValidFrameKeepsItsSize(t *testing.T) {
	r := newTestRenderer(t)

	img := r.Render(encodeJPEG(t, 64, 48), "", false)
	b := img.Bounds()
	if b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("frame size = %dx%d, want 64x48", b.Dx(), b.Dy())
	}

	if st := r.Stats(); st.DecodeFailures != 0 || st.Placeholders != 0 {
		t.Errorf("valid frame counted as failure: %+v", st)
	}
}

// TestRender_Flip checks the mirror: the fixture has a red left half,
// so after flipping the red moves to the right.
func TestRender_Flip(t *testing.T) {
	r := newTestRenderer(t)
	frame := encodeJPEG(t, 64, 48)

	plain := r.Render(frame, "", false)
	flipped := r.Render(frame, "", true)

	pr, _, _, _ := plain.At(2, 24).RGBA()
	if pr < 0x8000 {
		t.Fatal("fixture left edge is not red before flipping")
	}

	fr, _, _, _ := flipped.At(2, 24).RGBA()
	fb := flipped.(*image.RGBA).RGBAAt(61, 24)
	if fr >= 0x8000 {
		t.Error("left edge still red after flip")
	}
	if fb.R < 0x80 {
		t.Error("red half did not move to the right edge")
	}
}

// TestRender_OverlayDrawsPixels verifies overlay text actually lands
// on the image: some pixels near the center must turn white.
func TestRender_OverlayDrawsPixels(t *testing.T) {
	r := newTestRenderer(t)

	img := r.Render(nil, "5", false)

	white := 0
	b := img.Bounds()
	for y := b.Dy() / 4; y < 3*b.Dy()/4; y++ {
		for x := b.Dx() / 4; x < 3*b.Dx()/4; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			if cr > 0xf000 && cg > 0xf000 && cb > 0xf000 {
				white++
			}
		}
	}
	if white == 0 {
		t.Error("no white pixels found near center after overlay draw")
	}

	// Without an overlay the placeholder stays fully black.
	img = r.Render(nil, "", false)
	cr, cg, cb, _ := img.At(b.Dx()/2, b.Dy()/2).RGBA()
	if cr != 0 || cg != 0 || cb != 0 {
		t.Error("placeholder center is not black without overlay")
	}
}

// TestRender_FontFallback verifies a bogus font path still renders
// overlays through the built-in face.
func TestRender_FontFallback(t *testing.T) {
	r, err := New(Config{
		Width:    720,
		Height:   406,
		FontPath: "/nonexistent/font.ttf",
	})
	if err != nil {
		t.Fatalf("New() with bad font path returned error: %v", err)
	}

	img := r.Render(nil, "2", false)
	if img == nil {
		t.Fatal("Render() returned nil with fallback face")
	}

	white := 0
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			if cr > 0xf000 && cg > 0xf000 && cb > 0xf000 {
				white++
			}
		}
	}
	if white == 0 {
		t.Error("fallback face drew no visible text")
	}
}
