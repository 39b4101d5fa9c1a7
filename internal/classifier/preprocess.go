package classifier

import (
	"fmt"
	"image"
	"image/color"
)

// Preprocess writes one value per pixel of a width x height img into dst in
// row-major order. Each value is 255 minus the lowest byte of the pixel's
// ARGB word (blue), so dark ink on a white canvas becomes high intensity.
func Preprocess(img image.Image, width, height int, dst []float32) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidInput)
	}
	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		return fmt.Errorf("%w: image is %dx%d, want %dx%d", ErrInvalidInput, b.Dx(), b.Dy(), width, height)
	}
	if width*height != len(dst) {
		return fmt.Errorf("%w: %dx%d image, buffer holds %d values", ErrInvalidInput, width, height, len(dst))
	}

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst[i] = float32(0xff - lowByte(img.At(x, y)))
			i++
		}
	}
	return nil
}

func lowByte(c color.Color) uint8 {
	switch c := c.(type) {
	case color.Gray:
		return c.Y
	case color.NRGBA:
		return c.B
	}
	return color.NRGBAModel.Convert(c).(color.NRGBA).B
}
