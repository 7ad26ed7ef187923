// Package pdf binds a directory of restored pages into one document
package pdf

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"comicrestore-backend/imaging"

	"github.com/nfnt/resize"
	"github.com/signintech/gopdf"
)

// imageExts are the page formats the builder accepts, matching what the
// download pipeline writes plus what a user may drop in by hand.
var imageExts = map[string]bool{
	".webp": true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
}

type Builder struct {
	decoder *imaging.ImageDecoder
	// MaxWidth caps page width in pixels; wider pages are downscaled
	// proportionally. Zero means no cap.
	maxWidth int
}

func NewBuilder(maxWidth int) *Builder {
	return &Builder{
		decoder:  imaging.NewImageDecoder(),
		maxWidth: maxWidth,
	}
}

// ListPages returns the image files of a directory in name order, which
// is reading order for files the downloader wrote.
func ListPages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %v", dir, err)
	}

	var pages []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			pages = append(pages, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(pages)
	return pages, nil
}

// Build reads every page image of the directory and produces a PDF with
// one page per image, each page sized to its image (one pixel per point).
func (b *Builder) Build(dir string) ([]byte, error) {
	pages, err := ListPages(dir)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}

	doc := &gopdf.GoPdf{}
	doc.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})

	for _, path := range pages {
		img, err := b.loadPage(path)
		if err != nil {
			return nil, err
		}

		width := float64(img.Bounds().Dx())
		height := float64(img.Bounds().Dy())
		doc.AddPageWithOption(gopdf.PageOption{PageSize: &gopdf.Rect{W: width, H: height}})
		if err := doc.ImageFrom(img, 0, 0, &gopdf.Rect{W: width, H: height}); err != nil {
			return nil, fmt.Errorf("failed to place %s: %v", path, err)
		}
	}

	return doc.GetBytesPdf(), nil
}

// WriteFile builds the PDF and writes it to out.
func (b *Builder) WriteFile(dir, out string) error {
	data, err := b.Build(dir)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %v", out, err)
	}
	return nil
}

// loadPage decodes one page, flattens transparency onto white and applies
// the width cap.
func (b *Builder) loadPage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %v", path, err)
	}
	decoded, _, err := b.decoder.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %v", path, err)
	}

	var img image.Image = imaging.Flatten(decoded)
	if b.maxWidth > 0 && img.Bounds().Dx() > b.maxWidth {
		img = resize.Resize(uint(b.maxWidth), 0, img, resize.Lanczos3)
	}
	return img, nil
}
