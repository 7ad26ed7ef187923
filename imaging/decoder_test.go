package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"testing"
)

func gradient(width, height int, alpha uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 200, A: alpha})
		}
	}
	return img
}

func TestDecodeEncodePNGRoundTrip(t *testing.T) {
	t.Parallel()

	src := gradient(10, 14, 255)
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("png encode: %v", err)
	}

	decoder := NewImageDecoder()
	img, format, err := decoder.Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if format != "png" {
		t.Errorf("format: got %q, want png", format)
	}

	encoded, contentType, err := decoder.Encode(img, format)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contentType != "image/png" {
		t.Errorf("content type: got %q, want image/png", contentType)
	}

	back, err := png.Decode(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("decode re-encoded data: %v", err)
	}
	if psnr := CalculatePSNR(src, back); !math.IsInf(psnr, 1) {
		t.Errorf("png round trip lost pixels, PSNR %v", psnr)
	}
}

func TestDecodeEncodeGIFKeepsPixels(t *testing.T) {
	t.Parallel()

	// A two-color gif whose palette sits outside the standard quantizer
	// palettes; re-encoding as gif would shift these colors, so gif pages
	// must come back out as lossless png.
	palette := color.Palette{
		color.RGBA{R: 10, G: 200, B: 30, A: 255},
		color.RGBA{R: 250, G: 5, B: 120, A: 255},
	}
	src := image.NewPaletted(image.Rect(0, 0, 12, 10), palette)
	for y := 0; y < 10; y++ {
		for x := 0; x < 12; x++ {
			src.SetColorIndex(x, y, uint8((x+y)%2))
		}
	}
	var buf bytes.Buffer
	if err := gif.Encode(&buf, src, nil); err != nil {
		t.Fatalf("gif encode: %v", err)
	}

	decoder := NewImageDecoder()
	decoded, format, err := decoder.Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if format != "gif" {
		t.Fatalf("format: got %q, want gif", format)
	}

	// The restore path always hands Encode an NRGBA copy, never the
	// original paletted frame.
	restored := image.NewNRGBA(decoded.Bounds())
	draw.Draw(restored, restored.Bounds(), decoded, decoded.Bounds().Min, draw.Src)

	encoded, contentType, err := decoder.Encode(restored, format)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contentType != "image/png" {
		t.Errorf("content type: got %q, want image/png", contentType)
	}

	back, err := png.Decode(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("decode re-encoded data: %v", err)
	}
	if psnr := CalculatePSNR(src, back); !math.IsInf(psnr, 1) {
		t.Errorf("gif re-encode altered pixels, PSNR %v", psnr)
	}
}

func TestDecodeJPEG(t *testing.T) {
	t.Parallel()

	src := gradient(16, 16, 255)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}

	img, format, err := NewImageDecoder().Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format: got %q, want jpeg", format)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 16 {
		t.Errorf("bounds: got %v", img.Bounds())
	}
}

func TestDecodeGarbageFails(t *testing.T) {
	t.Parallel()

	if _, _, err := NewImageDecoder().Decode([]byte("not an image")); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestOutputFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, format, ext string
	}{
		{"jpeg", "jpeg", ".jpg"},
		{"png", "png", ".png"},
		{"gif", "png", ".png"},
		{"webp", "png", ".png"},
		{"bmp", "png", ".png"},
	}
	for _, tt := range tests {
		if got := OutputFormat(tt.in); got != tt.format {
			t.Errorf("OutputFormat(%q) = %q, want %q", tt.in, got, tt.format)
		}
		if got := OutputExt(tt.in); got != tt.ext {
			t.Errorf("OutputExt(%q) = %q, want %q", tt.in, got, tt.ext)
		}
	}
}

func TestFlattenDropsAlpha(t *testing.T) {
	t.Parallel()

	src := gradient(6, 6, 0) // fully transparent
	flat := Flatten(src)

	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			if got := flat.RGBAAt(x, y); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
				t.Fatalf("pixel (%d,%d): got %v, want opaque white", x, y, got)
			}
		}
	}
}

func TestCalculatePSNR(t *testing.T) {
	t.Parallel()

	a := gradient(8, 8, 255)
	if psnr := CalculatePSNR(a, a); !math.IsInf(psnr, 1) {
		t.Errorf("identical images: got %v, want +Inf", psnr)
	}

	b := gradient(8, 8, 255)
	b.SetNRGBA(0, 0, color.NRGBA{A: 255})
	psnr := CalculatePSNR(a, b)
	if math.IsInf(psnr, 1) || psnr <= 0 {
		t.Errorf("differing images: got %v, want finite positive", psnr)
	}

	if got := CalculatePSNR(a, gradient(4, 4, 255)); got != 0 {
		t.Errorf("mismatched sizes: got %v, want 0", got)
	}

	if !ValidatePSNR(math.Inf(1), 40) {
		t.Error("infinite PSNR should pass any threshold")
	}
	if ValidatePSNR(30, 40) {
		t.Error("PSNR below threshold should fail")
	}
}
