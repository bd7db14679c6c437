// Package imaging renders a scanned page into the candidate images fed to text recognition.
package imaging

import (
	"image"

	"github.com/zainab-noor-25/invoice-api/constants"
)

// Config controls the resolution floor and upscale factors.
type Config struct {
	MinWidth    int     // pages narrower than this are upscaled; default 1000
	MildScale   float64 // default 2.0
	StrongScale float64 // default 2.5
}

// Rendering is one preprocessed version of a page.
type Rendering struct {
	Variant constants.Variant
	Image   *image.Gray
}

type Normalizer struct {
	cfg Config
}

func NewNormalizer(cfg Config) *Normalizer {
	if cfg.MinWidth <= 0 {
		cfg.MinWidth = 1000
	}
	if cfg.MildScale <= 1 {
		cfg.MildScale = 2.0
	}
	if cfg.StrongScale <= 1 {
		cfg.StrongScale = 2.5
	}
	return &Normalizer{cfg: cfg}
}

// Variants returns the raw, mild and strong renderings of img, in that order.
func (n *Normalizer) Variants(img image.Image) []Rendering {
	gray := Grayscale(img)
	small := gray.Bounds().Dx() < n.cfg.MinWidth

	mild := gray
	if small {
		mild = Upscale(gray, n.cfg.MildScale)
	}
	mild = Equalize(mild)

	strong := gray
	if small {
		strong = Upscale(gray, n.cfg.StrongScale)
	}
	strong = Denoise(strong)
	strong = Equalize(strong)
	strong = Sharpen(strong)
	strong = Binarize(strong, OtsuThreshold(strong))

	return []Rendering{
		{Variant: constants.VariantRaw, Image: gray},
		{Variant: constants.VariantMild, Image: mild},
		{Variant: constants.VariantStrong, Image: strong},
	}
}
