package vision

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// denoiseSigma is the gaussian blur applied before thresholding
const denoiseSigma = 0.6

// Preprocess converts an image to a denoised, Otsu-binarized PNG.
func Preprocess(data []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	gray := imaging.Grayscale(src)
	gray = imaging.Blur(gray, denoiseSigma)

	binary := Binarize(gray)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, binary, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Binarize thresholds an image at its Otsu level.
func Binarize(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}

	var hist [256]int
	for _, v := range gray.Pix {
		hist[v]++
	}
	t := OtsuThreshold(hist)

	for i, v := range gray.Pix {
		if v > t {
			gray.Pix[i] = 255
		} else {
			gray.Pix[i] = 0
		}
	}
	return gray
}

// OtsuThreshold returns the level that maximizes between-class variance.
func OtsuThreshold(hist [256]int) uint8 {
	total := 0
	sum := 0.0
	for i, n := range hist {
		total += n
		sum += float64(i * n)
	}
	if total == 0 {
		return 127
	}

	var (
		best     uint8
		maxVar   float64
		sumBack  float64
		weightBk int
	)
	for t := 0; t < 256; t++ {
		weightBk += hist[t]
		if weightBk == 0 {
			continue
		}
		weightFg := total - weightBk
		if weightFg == 0 {
			break
		}
		sumBack += float64(t * hist[t])
		meanBk := sumBack / float64(weightBk)
		meanFg := (sum - sumBack) / float64(weightFg)
		between := float64(weightBk) * float64(weightFg) * (meanBk - meanFg) * (meanBk - meanFg)
		if between > maxVar {
			maxVar = between
			best = uint8(t)
		}
	}
	return best
}

