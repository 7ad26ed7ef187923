// Package handlers is made to handle requests
package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"comicrestore-backend/descramble"
	"comicrestore-backend/downloader"
	"comicrestore-backend/imaging"
	"comicrestore-backend/models"
	"comicrestore-backend/pdf"
	"comicrestore-backend/scraper"

	"github.com/gin-gonic/gin"
)

type RestoreHandler struct {
	imageDecoder *imaging.ImageDecoder
	scraper      *scraper.Scraper
}

func NewRestoreHandler() *RestoreHandler {
	return &RestoreHandler{
		imageDecoder: imaging.NewImageDecoder(),
		scraper:      scraper.NewScraper(),
	}
}

func (h *RestoreHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "Comic restore API is running",
		"version": "1.0.0",
	})
}

// RestoreImage accepts a scrambled page upload plus its identifiers and
// streams back the restored image.
func (h *RestoreHandler) RestoreImage(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil { // 32MB limit
		c.JSON(http.StatusBadRequest, models.RestoreResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to parse form: %v", err),
		})
		return
	}

	albumID, err := strconv.ParseInt(c.PostForm("album_id"), 10, 64)
	if err != nil || albumID < 0 {
		c.JSON(http.StatusBadRequest, models.RestoreResponse{
			Success: false,
			Message: "album_id must be a non-negative integer",
		})
		return
	}

	photoID, err := strconv.ParseInt(c.PostForm("photo_id"), 10, 64)
	if err != nil || photoID < 0 {
		c.JSON(http.StatusBadRequest, models.RestoreResponse{
			Success: false,
			Message: "photo_id must be a non-negative integer",
		})
		return
	}

	pageFile, pageHeader, err := c.Request.FormFile("page_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.RestoreResponse{
			Success: false,
			Message: "Page file is required",
		})
		return
	}
	defer pageFile.Close()

	if !isSupportedImageFile(pageHeader.Filename) {
		c.JSON(http.StatusBadRequest, models.RestoreResponse{
			Success: false,
			Message: "Invalid image file format. Supported: webp, jpg, jpeg, png, gif, bmp",
		})
		return
	}

	pageData, err := io.ReadAll(pageFile)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.RestoreResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to read page file: %v", err),
		})
		return
	}

	img, format, err := h.imageDecoder.Decode(pageData)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.RestoreResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to decode image: %v", err),
		})
		return
	}

	segments := 1
	if descramble.Scrambled(albumID) {
		segments, err = descramble.SegmentCount(albumID, photoID)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.RestoreResponse{
				Success: false,
				Message: fmt.Sprintf("Failed to resolve segment count: %v", err),
			})
			return
		}
	}

	restored := img
	if segments > 1 {
		restored, err = descramble.Restore(img, segments)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.RestoreResponse{
				Success:  false,
				Message:  fmt.Sprintf("Failed to restore image: %v", err),
				Segments: segments,
			})
			return
		}
	}

	restoredData, contentType, err := h.imageDecoder.Encode(restored, format)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.RestoreResponse{
			Success:  false,
			Message:  fmt.Sprintf("Failed to encode restored image: %v", err),
			Segments: segments,
		})
		return
	}

	baseFilename := strings.TrimSuffix(pageHeader.Filename, filepath.Ext(pageHeader.Filename))
	outputFilename := fmt.Sprintf("%s_restored%s", baseFilename, imaging.OutputExt(format))

	// Set headers for file download
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Transfer-Encoding", "binary")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputFilename))
	c.Header("Content-Length", fmt.Sprintf("%d", len(restoredData)))

	c.Header("X-Restore-Segments", strconv.Itoa(segments))
	c.Header("X-Restore-Format", imaging.OutputFormat(format))

	c.Data(http.StatusOK, contentType, restoredData)
}

// SegmentCount reports the band count for an identifier pair without
// touching any image.
func (h *RestoreHandler) SegmentCount(c *gin.Context) {
	albumID, err := strconv.ParseInt(c.Query("album_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.SegmentResponse{
			Success: false,
			Message: "album_id must be an integer",
		})
		return
	}
	photoID, err := strconv.ParseInt(c.Query("photo_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.SegmentResponse{
			Success: false,
			Message: "photo_id must be an integer",
		})
		return
	}

	scrambled := descramble.Scrambled(albumID)
	segments := 1
	if scrambled {
		segments, err = descramble.SegmentCount(albumID, photoID)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.SegmentResponse{
				Success: false,
				Message: fmt.Sprintf("Failed to resolve segment count: %v", err),
			})
			return
		}
	}

	c.JSON(http.StatusOK, models.SegmentResponse{
		Success:   true,
		AlbumID:   albumID,
		PhotoID:   photoID,
		Segments:  segments,
		Scrambled: scrambled,
	})
}

// FetchAlbum scrapes an album page, downloads and restores every page
// and optionally binds the result into a PDF.
func (h *RestoreHandler) FetchAlbum(c *gin.Context) {
	var req models.FetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.FetchResponse{
			Success: false,
			Message: fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}

	album, err := h.scraper.FetchAlbum(c.Request.Context(), req.URL)
	if err != nil {
		c.JSON(http.StatusBadGateway, models.FetchResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to scrape album page: %v", err),
		})
		return
	}
	if len(album.Images) == 0 {
		c.JSON(http.StatusNotFound, models.FetchResponse{
			Success: false,
			Message: "No images found on the album page",
			AlbumID: album.ID,
			Title:   album.Title,
		})
		return
	}

	dl := downloader.New(downloader.Options{
		OutputDir:   req.OutputDir,
		Delay:       time.Duration(req.DelayMS) * time.Millisecond,
		Concurrency: req.Concurrency,
		SkipExists:  true,
	})

	summary, err := dl.DownloadAlbum(c.Request.Context(), album)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.FetchResponse{
			Success: false,
			Message: fmt.Sprintf("Download failed: %v", err),
			AlbumID: album.ID,
			Title:   album.Title,
		})
		return
	}

	resp := models.FetchResponse{
		Success:    true,
		Message:    fmt.Sprintf("Downloaded %d of %d pages", summary.Downloaded, summary.Total),
		AlbumID:    album.ID,
		Title:      album.Title,
		Total:      summary.Total,
		Downloaded: summary.Downloaded,
		Skipped:    summary.Skipped,
		Failed:     summary.Failed,
		OutputDir:  summary.Dir,
	}

	if req.BuildPDF {
		pdfPath := summary.Dir + ".pdf"
		if err := pdf.NewBuilder(0).WriteFile(summary.Dir, pdfPath); err != nil {
			resp.Message = fmt.Sprintf("%s; PDF build failed: %v", resp.Message, err)
		} else {
			resp.PDFPath = pdfPath
		}
	}

	c.JSON(http.StatusOK, resp)
}

// AlbumChapters scrapes a series listing page and returns its chapter
// links.
func (h *RestoreHandler) AlbumChapters(c *gin.Context) {
	var req models.ChaptersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ChaptersResponse{
			Success: false,
			Message: fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}

	title, chapters, err := h.scraper.FetchChapters(c.Request.Context(), req.URL)
	if err != nil {
		c.JSON(http.StatusBadGateway, models.ChaptersResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to scrape listing page: %v", err),
		})
		return
	}
	if len(chapters) == 0 {
		c.JSON(http.StatusNotFound, models.ChaptersResponse{
			Success: false,
			Message: "No chapters found on the listing page",
			Title:   title,
		})
		return
	}

	items := make([]models.ChapterItem, len(chapters))
	for i, ch := range chapters {
		items[i] = models.ChapterItem{
			Title:   ch.Title,
			URL:     ch.URL,
			PhotoID: ch.PhotoID,
			Episode: ch.Episode,
		}
	}

	c.JSON(http.StatusOK, models.ChaptersResponse{
		Success:  true,
		Title:    title,
		Chapters: items,
	})
}

// FetchSeries downloads every chapter of a series into per-chapter
// directories under the sanitized series title.
func (h *RestoreHandler) FetchSeries(c *gin.Context) {
	var req models.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.BatchResponse{
			Success: false,
			Message: fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}

	dl := downloader.New(downloader.Options{
		OutputDir:   req.OutputDir,
		Delay:       time.Duration(req.DelayMS) * time.Millisecond,
		Concurrency: req.Concurrency,
		SkipExists:  true,
	})

	batch, err := dl.DownloadChapters(c.Request.Context(), h.scraper, req.URL)
	if err != nil {
		c.JSON(http.StatusBadGateway, models.BatchResponse{
			Success: false,
			Message: fmt.Sprintf("Series download failed: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, models.BatchResponse{
		Success:    true,
		Message:    fmt.Sprintf("Downloaded %d pages across %d chapters", batch.Downloaded, batch.Chapters),
		Title:      batch.Title,
		Chapters:   batch.Chapters,
		Total:      batch.Total,
		Downloaded: batch.Downloaded,
		Skipped:    batch.Skipped,
		Failed:     batch.Failed,
		OutputDir:  batch.Dir,
	})
}

// AlbumPDF streams a PDF built from a directory of restored pages.
func (h *RestoreHandler) AlbumPDF(c *gin.Context) {
	var req models.PDFRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.RestoreResponse{
			Success: false,
			Message: fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}

	data, err := pdf.NewBuilder(req.MaxWidth).Build(req.Dir)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, models.RestoreResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to build PDF: %v", err),
		})
		return
	}

	filename := filepath.Base(filepath.Clean(req.Dir)) + ".pdf"
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Header("Content-Length", fmt.Sprintf("%d", len(data)))

	c.Data(http.StatusOK, "application/pdf", data)
}

func isSupportedImageFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".webp", ".jpg", ".jpeg", ".png", ".gif", ".bmp":
		return true
	}
	return false
}
