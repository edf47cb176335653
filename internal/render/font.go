package render

import (
	"log/slog"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// loadFace loads the overlay typeface from disk. Any failure falls
// back to the built-in fixed-size face so text still renders on
// systems without the font package installed; the overlay is a
// countdown digit, not typography worth crashing over.
func loadFace(path string, size float64) font.Face {
	if path == "" {
		return basicfont.Face7x13
	}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("render: overlay font unavailable, using built-in face",
			"path", path,
			"error", err,
		)
		return basicfont.Face7x13
	}

	ft, err := opentype.Parse(data)
	if err != nil {
		slog.Warn("render: overlay font unparsable, using built-in face",
			"path", path,
			"error", err,
		)
		return basicfont.Face7x13
	}

	face, err := opentype.NewFace(ft, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		slog.Warn("render: overlay face creation failed, using built-in face",
			"path", path,
			"error", err,
		)
		return basicfont.Face7x13
	}

	return face
}
