// Package imaging decodes delivered page images and re-encodes restored ones
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 95

type ImageDecoder struct{}

func NewImageDecoder() *ImageDecoder {
	return &ImageDecoder{}
}

// Decode parses image data in any of the site's delivery formats
// (webp, jpeg, png, gif, bmp) and returns the image plus format name.
func (id *ImageDecoder) Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %v", err)
	}
	return img, format, nil
}

// Encode serializes a restored image. The source format picks the output:
// jpeg and png round-trip as themselves, everything else (webp, gif, bmp)
// becomes png. Go has no webp encoder, and re-encoding gif would
// re-quantize the restored pixels; png keeps them intact.
func (id *ImageDecoder) Encode(img image.Image, sourceFormat string) ([]byte, string, error) {
	var buf bytes.Buffer
	var err error

	format := OutputFormat(sourceFormat)
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode %s image: %v", format, err)
	}

	return buf.Bytes(), "image/" + format, nil
}

// OutputFormat maps a decoded format name to the format Encode will emit.
func OutputFormat(sourceFormat string) string {
	switch sourceFormat {
	case "jpeg", "png":
		return sourceFormat
	default:
		return "png"
	}
}

// OutputExt returns the file extension for the encoded output of an image
// decoded from the given format.
func OutputExt(sourceFormat string) string {
	if OutputFormat(sourceFormat) == "jpeg" {
		return ".jpg"
	}
	return ".png"
}

// Flatten composites an image onto a white background, dropping any
// alpha channel. PDF pages need opaque RGB.
func Flatten(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	white := image.NewUniform(color.White)
	draw.Draw(out, out.Bounds(), white, image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Over)
	return out
}
