package descramble

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"
)

// rowImage builds an image whose pixels encode their source row number,
// so band moves are visible per pixel.
func rowImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, rowColor(x, y))
		}
	}
	return img
}

func rowColor(x, y int) color.NRGBA {
	return color.NRGBA{R: uint8(y), G: uint8(y >> 8), B: uint8(x), A: 255}
}

// scramble is the forward transform Restore undoes: original rows are
// extracted top-down and written into the band layout bottom-up.
func scramble(img image.Image, segments int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, width, height))

	base := height / segments
	for i := segments - 1; i >= 0; i-- {
		start, end := bandRange(i, height, segments)
		srcY := (segments - 1 - i) * base
		rect := image.Rect(0, start, width, end)
		draw.Draw(out, rect, img, bounds.Min.Add(image.Pt(0, srcY)), draw.Src)
	}
	return out
}

func TestSegmentCountVectors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		albumID int64
		photoID int64
		want    int
	}{
		// md5("12234741") ends in '4' -> key 4
		{1223474, 1, 6},
		// md5("12234742") ends in '2' -> key 2
		{1223474, 2, 4},
		// md5("122347457") ends in '7' -> key 7
		{1223474, 57, 9},
		// md5("2688501") ends in '6' -> key 6
		{268850, 1, 8},
		// md5("42192612") ends in '8' -> key 0
		{421926, 12, 1},
		// md5("4000007") ends in 'a' -> key 2
		{400000, 7, 4},
		// md5("999999999") ends in 'b' -> key 3
		{999999, 999, 5},
		// md5("00") ends in '3' -> key 3
		{0, 0, 5},
		// md5("11") ends in 'a' -> key 2
		{1, 1, 4},
		// md5("314159265") ends in '5' -> key 5
		{314159, 265, 7},
	}

	for _, tt := range tests {
		got, err := SegmentCount(tt.albumID, tt.photoID)
		if err != nil {
			t.Errorf("SegmentCount(%d, %d): unexpected error %v", tt.albumID, tt.photoID, err)
			continue
		}
		if got != tt.want {
			t.Errorf("SegmentCount(%d, %d) = %d, want %d", tt.albumID, tt.photoID, got, tt.want)
		}
	}
}

func TestSegmentCountDeterministic(t *testing.T) {
	t.Parallel()

	first, err := SegmentCount(1223474, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		got, err := SegmentCount(1223474, 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != first {
			t.Fatalf("SegmentCount not deterministic: got %d then %d", first, got)
		}
	}
}

func TestSegmentCountRejectsNegativeIdentifiers(t *testing.T) {
	t.Parallel()

	if _, err := SegmentCount(-1, 1); !errors.Is(err, ErrInvalidIdentifier) {
		t.Errorf("negative album id: got %v, want ErrInvalidIdentifier", err)
	}
	if _, err := SegmentCount(1223474, -7); !errors.Is(err, ErrInvalidIdentifier) {
		t.Errorf("negative photo id: got %v, want ErrInvalidIdentifier", err)
	}
}

func TestSegmentCountStaysInTable(t *testing.T) {
	t.Parallel()

	valid := map[int]bool{1: true, 2: true, 4: true, 5: true, 6: true, 7: true, 8: true, 9: true}
	for photo := int64(1); photo <= 200; photo++ {
		got, err := SegmentCount(1223474, photo)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !valid[got] {
			t.Fatalf("SegmentCount(1223474, %d) = %d, not a table value", photo, got)
		}
	}
}

func TestScrambled(t *testing.T) {
	t.Parallel()

	if Scrambled(ScrambleCutoff - 1) {
		t.Errorf("album %d should not be scrambled", ScrambleCutoff-1)
	}
	if !Scrambled(ScrambleCutoff) {
		t.Errorf("album %d should be scrambled", ScrambleCutoff)
	}
}

func TestRestoreIdentityAtOneSegment(t *testing.T) {
	t.Parallel()

	src := rowImage(8, 21)
	restored, err := Restore(src, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertPixelEqual(t, restored, src)

	// The copy must be distinct memory; mutating it may not touch the input.
	restored.(*image.NRGBA).SetNRGBA(0, 0, color.NRGBA{R: 99, G: 99, B: 99, A: 255})
	if src.NRGBAAt(0, 0) != rowColor(0, 0) {
		t.Fatal("Restore returned a view of the input image")
	}
}

func TestRestoreConcreteScenario(t *testing.T) {
	t.Parallel()

	// H=100, N=3: source bands are [0,34), [34,67), [67,100) and the
	// restored image stacks them in reverse.
	src := rowImage(4, 100)
	restored, err := Restore(src, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := restored.(*image.NRGBA)
	checkBand := func(destStart, destEnd, srcStart int) {
		for y := destStart; y < destEnd; y++ {
			want := rowColor(0, srcStart+y-destStart)
			if got := out.NRGBAAt(0, y); got != want {
				t.Fatalf("dest row %d: got %v, want source row %d", y, got, srcStart+y-destStart)
			}
		}
	}
	checkBand(0, 33, 67)
	checkBand(33, 66, 34)
	checkBand(66, 100, 0)
}

func TestRestoreRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		width, height, segments int
	}{
		{3, 7, 7},
		{5, 10, 2},
		{2, 11, 4},
		{4, 100, 3},
		{1, 97, 9},
		{6, 40, 8},
		{3, 13, 1},
		{2, 25, 6},
	}

	for _, tt := range tests {
		original := rowImage(tt.width, tt.height)
		scrambled := scramble(original, tt.segments)
		restored, err := Restore(scrambled, tt.segments)
		if err != nil {
			t.Errorf("Restore(%dx%d, %d): unexpected error %v", tt.width, tt.height, tt.segments, err)
			continue
		}
		assertPixelEqual(t, restored, original)
	}
}

func TestRestoreConservesRows(t *testing.T) {
	t.Parallel()

	const width, height = 3, 29
	src := rowImage(width, height)
	for segments := 1; segments <= height; segments++ {
		restored, err := Restore(src, segments)
		if err != nil {
			t.Fatalf("segments=%d: unexpected error %v", segments, err)
		}
		if got := restored.Bounds().Dy(); got != height {
			t.Fatalf("segments=%d: output height %d, want %d", segments, got, height)
		}

		seen := make(map[color.NRGBA]int)
		out := restored.(*image.NRGBA)
		for y := 0; y < height; y++ {
			seen[out.NRGBAAt(0, y)]++
		}
		for y := 0; y < height; y++ {
			if seen[rowColor(0, y)] != 1 {
				t.Fatalf("segments=%d: source row %d appears %d times", segments, y, seen[rowColor(0, y)])
			}
		}
	}
}

func TestRestoreBoundaryRejection(t *testing.T) {
	t.Parallel()

	src := rowImage(4, 10)
	if _, err := Restore(src, 0); !errors.Is(err, ErrInvalidSegmentCount) {
		t.Errorf("segments=0: got %v, want ErrInvalidSegmentCount", err)
	}
	if _, err := Restore(src, -3); !errors.Is(err, ErrInvalidSegmentCount) {
		t.Errorf("segments=-3: got %v, want ErrInvalidSegmentCount", err)
	}
	if _, err := Restore(src, 11); !errors.Is(err, ErrInvalidSegmentCount) {
		t.Errorf("segments=11 > height: got %v, want ErrInvalidSegmentCount", err)
	}

	empty := image.NewNRGBA(image.Rect(0, 0, 0, 0))
	if _, err := Restore(empty, 1); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("empty image: got %v, want ErrInvalidDimensions", err)
	}
}

func TestRestoreNonZeroOrigin(t *testing.T) {
	t.Parallel()

	// Decoded sub-images can have non-zero bounds; Restore must honor
	// the bounds origin rather than assume (0,0).
	base := rowImage(6, 30)
	shifted := base.SubImage(image.Rect(2, 5, 6, 29)).(*image.NRGBA)

	restored, err := Restore(shifted, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rescrambled := scramble(restored, 4)

	out := rescrambled.(*image.NRGBA)
	b := shifted.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			want := shifted.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			if got := out.NRGBAAt(x, y); got != want {
				t.Fatalf("pixel (%d,%d): got %v, want %v", x, y, got, want)
			}
		}
	}
}

func assertPixelEqual(t *testing.T, got, want image.Image) {
	t.Helper()
	gb, wb := got.Bounds(), want.Bounds()
	if gb.Dx() != wb.Dx() || gb.Dy() != wb.Dy() {
		t.Fatalf("size mismatch: got %dx%d, want %dx%d", gb.Dx(), gb.Dy(), wb.Dx(), wb.Dy())
	}
	for y := 0; y < gb.Dy(); y++ {
		for x := 0; x < gb.Dx(); x++ {
			gr, gg, gbl, ga := got.At(gb.Min.X+x, gb.Min.Y+y).RGBA()
			wr, wg, wbl, wa := want.At(wb.Min.X+x, wb.Min.Y+y).RGBA()
			if gr != wr || gg != wg || gbl != wbl || ga != wa {
				t.Fatalf("pixel (%d,%d) differs", x, y)
			}
		}
	}
}
