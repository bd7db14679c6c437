package imaging

import (
	"image"
	"image/color"
	"math"
	"sort"

	"golang.org/x/image/draw"
)

// Grayscale converts img into a fresh *image.Gray anchored at the origin.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			dst.SetGray(x, y, c)
		}
	}
	return dst
}

// Upscale resizes g by factor using Catmull-Rom interpolation.
func Upscale(g *image.Gray, factor float64) *image.Gray {
	b := g.Bounds()
	w := int(math.Round(float64(b.Dx()) * factor))
	h := int(math.Round(float64(b.Dy()) * factor))
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), g, b, draw.Src, nil)
	return dst
}

// Equalize spreads the histogram of g over the full 0..255 range.
func Equalize(g *image.Gray) *image.Gray {
	var hist [256]int
	for _, v := range g.Pix {
		hist[v]++
	}
	total := len(g.Pix)
	var cdf [256]int
	run := 0
	for i, c := range hist {
		run += c
		cdf[i] = run
	}
	cdfMin := 0
	for _, c := range cdf {
		if c > 0 {
			cdfMin = c
			break
		}
	}
	dst := clone(g)
	if total == cdfMin {
		return dst
	}
	var lut [256]uint8
	for i := range lut {
		if cdf[i] < cdfMin {
			continue
		}
		lut[i] = uint8(math.Round(float64(cdf[i]-cdfMin) / float64(total-cdfMin) * 255))
	}
	for i, v := range g.Pix {
		dst.Pix[i] = lut[v]
	}
	return dst
}

// Denoise applies a 3x3 median filter.
func Denoise(g *image.Gray) *image.Gray {
	b := g.Bounds()
	dst := image.NewGray(b)
	var win [9]uint8
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			k := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					win[k] = grayAt(g, x+dx, y+dy)
					k++
				}
			}
			s := win[:]
			sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
			dst.SetGray(x, y, color.Gray{Y: s[4]})
		}
	}
	return dst
}

var sharpenKernel = [3][3]int{
	{0, -1, 0},
	{-1, 5, -1},
	{0, -1, 0},
}

// Sharpen convolves g with a 3x3 sharpening kernel.
func Sharpen(g *image.Gray) *image.Gray {
	b := g.Bounds()
	dst := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sum := 0
			for ky := 0; ky < 3; ky++ {
				for kx := 0; kx < 3; kx++ {
					sum += sharpenKernel[ky][kx] * int(grayAt(g, x+kx-1, y+ky-1))
				}
			}
			dst.SetGray(x, y, color.Gray{Y: clamp(sum)})
		}
	}
	return dst
}

// OtsuThreshold returns the global threshold maximizing between-class variance.
func OtsuThreshold(g *image.Gray) uint8 {
	var hist [256]float64
	for _, v := range g.Pix {
		hist[v]++
	}
	total := float64(len(g.Pix))
	if total == 0 {
		return 127
	}
	var sum float64
	for i, c := range hist {
		sum += float64(i) * c
	}

	var sumB, wB, best float64
	var threshold uint8
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * hist[t]
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = uint8(t)
		}
	}
	return threshold
}

// Binarize maps pixels above t to white and the rest to black.
func Binarize(g *image.Gray, t uint8) *image.Gray {
	dst := clone(g)
	for i, v := range g.Pix {
		if v > t {
			dst.Pix[i] = 255
		} else {
			dst.Pix[i] = 0
		}
	}
	return dst
}

func grayAt(g *image.Gray, x, y int) uint8 {
	b := g.Bounds()
	x = min(max(x, b.Min.X), b.Max.X-1)
	y = min(max(y, b.Min.Y), b.Max.Y-1)
	return g.GrayAt(x, y).Y
}

func clamp(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func clone(g *image.Gray) *image.Gray {
	dst := image.NewGray(g.Bounds())
	copy(dst.Pix, g.Pix)
	return dst
}
