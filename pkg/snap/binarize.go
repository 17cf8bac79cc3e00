package snap

import (
	"image"

	"github.com/disintegration/imaging"
)

// BinarizeConfig controls how an image is split into content and background
type BinarizeConfig struct {
	Threshold     uint8
	BlurSigma     float64
	ContentIsDark bool
}

// DefaultBinarizeConfig returns a mid-grey threshold with dark content
func DefaultBinarizeConfig() BinarizeConfig {
	return BinarizeConfig{
		Threshold:     128,
		BlurSigma:     0,
		ContentIsDark: true,
	}
}

// Binarize converts img into a single-channel mask where content pixels are 255
// and background pixels are 0. The result always starts at (0,0).
func Binarize(img image.Image, cfg BinarizeConfig) *image.Gray {
	src := img
	if cfg.BlurSigma > 0 {
		src = imaging.Blur(img, cfg.BlurSigma)
	}
	gray := imaging.Grayscale(src)

	b := gray.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := gray.Pix[y*gray.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			v := row[x*4]
			content := v >= cfg.Threshold
			if cfg.ContentIsDark {
				content = v < cfg.Threshold
			}
			if content {
				dst[x] = 255
			}
		}
	}
	return out
}

// IsContent reports whether pixel (x, y) of a binarized image is foreground
func IsContent(bin *image.Gray, x, y int) bool {
	p := image.Pt(x+bin.Rect.Min.X, y+bin.Rect.Min.Y)
	if !p.In(bin.Rect) {
		return false
	}
	return bin.Pix[bin.PixOffset(p.X, p.Y)] != 0
}
