package thumbnail

import (
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// ReferenceWidth is the screen width the configured blur radius is meant for.
const ReferenceWidth = 1920

// BlurPreview loads a preview image, scales it to width (when > 0) and blurs
// it the way the player blurs a static wallpaper, with the radius scaled
// down from screen size to preview size.
func BlurPreview(path string, radius float64, width int) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preview %s: %w", path, err)
	}

	if width > 0 && img.Bounds().Dx() != width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}

	sigma := radius * float64(img.Bounds().Dx()) / ReferenceWidth
	if sigma <= 0 {
		return img, nil
	}
	return imaging.Blur(img, sigma), nil
}

// EncodePNG writes img as PNG, for handing previews to the toolkit.
func EncodePNG(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG)
}
