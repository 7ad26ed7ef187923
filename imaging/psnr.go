package imaging

import (
	"image"
	"math"
)

// CalculatePSNR compares two images channel by channel. Identical images
// yield +Inf. Images of different sizes are incomparable and yield 0.
func CalculatePSNR(original, restored image.Image) float64 {
	ob, rb := original.Bounds(), restored.Bounds()
	if ob.Dx() != rb.Dx() || ob.Dy() != rb.Dy() {
		return 0.0
	}
	if ob.Dx() == 0 || ob.Dy() == 0 {
		return 0.0
	}

	var mse float64
	for y := 0; y < ob.Dy(); y++ {
		for x := 0; x < ob.Dx(); x++ {
			or, og, obl, oa := original.At(ob.Min.X+x, ob.Min.Y+y).RGBA()
			rr, rg, rbl, ra := restored.At(rb.Min.X+x, rb.Min.Y+y).RGBA()
			// RGBA returns 16-bit channels; compare at 8-bit depth.
			for _, d := range []float64{
				float64(or>>8) - float64(rr>>8),
				float64(og>>8) - float64(rg>>8),
				float64(obl>>8) - float64(rbl>>8),
				float64(oa>>8) - float64(ra>>8),
			} {
				mse += d * d
			}
		}
	}
	mse /= float64(ob.Dx() * ob.Dy() * 4)

	// If MSE is 0, images are identical
	if mse == 0 {
		return math.Inf(1)
	}

	maxSignalValue := 255.0
	return 20 * math.Log10(maxSignalValue/math.Sqrt(mse))
}

// ValidatePSNR reports whether a PSNR value meets the given threshold.
func ValidatePSNR(psnr float64, threshold float64) bool {
	if math.IsInf(psnr, 1) {
		return true
	}
	return psnr >= threshold
}
