package descramble

import (
	"fmt"
	"image"
	"image/draw"
)

// Errors reported by Restore for inputs that cannot form a valid band layout.
var (
	ErrInvalidDimensions   = fmt.Errorf("invalid image dimensions")
	ErrInvalidSegmentCount = fmt.Errorf("invalid segment count")
)

// bandRange returns the source row range [start, end) of band i when an
// image of height h is cut into n bands. The topmost band absorbs the
// division remainder; every other band has height h/n.
func bandRange(i, h, n int) (start, end int) {
	base := h / n
	rem := h % n
	if i == 0 {
		return 0, base + rem
	}
	start = rem + i*base
	return start, start + base
}

// Restore rebuilds the original page from a scrambled image that was cut
// into the given number of horizontal bands. The source is read band by
// band from the bottom up and stacked into a fresh image from the top
// down; row order inside each band is untouched. The input image is
// never modified. segments == 1 yields a pixel-identical copy.
func Restore(img image.Image, segments int) (image.Image, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if segments < 1 || segments > height {
		return nil, fmt.Errorf("%w: %d segments for height %d", ErrInvalidSegmentCount, segments, height)
	}

	restored := image.NewNRGBA(image.Rect(0, 0, width, height))

	destY := 0
	for i := segments - 1; i >= 0; i-- {
		start, end := bandRange(i, height, segments)
		bandHeight := end - start
		rect := image.Rect(0, destY, width, destY+bandHeight)
		src := bounds.Min.Add(image.Pt(0, start))
		draw.Draw(restored, rect, img, src, draw.Src)
		destY += bandHeight
	}

	return restored, nil
}
