package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	_ "github.com/gen2brain/avif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
)

// DecodeImage decodes any registered format. Failures are KindDecode.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, newError(KindDecode, fmt.Errorf("cannot identify image file: empty upload"))
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, newError(KindDecode, fmt.Errorf("cannot identify image file: %w", err))
	}
	return img, nil
}

// prepare image for model input: RGB, 128x128 bicubic, [0,1], NHWC
func Preprocess(img image.Image) []float32 {
	resized := imaging.Resize(dropAlpha(img), ImageSize, ImageSize, imaging.CatmullRom)

	out := make([]float32, InputLen)
	i := 0
	for y := 0; y < ImageSize; y++ {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < ImageSize; x++ {
			p := row[x*4 : x*4+3]
			out[i] = float32(p[0]) / 255
			out[i+1] = float32(p[1]) / 255
			out[i+2] = float32(p[2]) / 255
			i += Channels
		}
	}
	return out
}

// dropAlpha makes every pixel opaque without compositing, so transparent
// regions keep their colour through the alpha-weighted resampler.
func dropAlpha(img image.Image) *image.NRGBA {
	rgb := imaging.Clone(img)
	for i := 3; i < len(rgb.Pix); i += 4 {
		rgb.Pix[i] = 0xff
	}
	return rgb
}

// Argmax returns the index and value of the highest score. Ties go to the
// lowest index; NaN scores never win.
func Argmax(scores []float32) (int, float32, error) {
	best, bestVal := -1, float32(math.Inf(-1))
	for i, v := range scores {
		if v != v {
			continue
		}
		if best < 0 || v > bestVal {
			best, bestVal = i, v
		}
	}
	if best < 0 {
		return 0, 0, fmt.Errorf("model returned no usable scores (%d values)", len(scores))
	}
	return best, bestVal, nil
}
