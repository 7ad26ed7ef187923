// Package downloader runs the fetch-restore-persist pipeline for whole albums
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"comicrestore-backend/descramble"
	"comicrestore-backend/imaging"
	"comicrestore-backend/models"
	"comicrestore-backend/scraper"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultDelay       = 500 * time.Millisecond
	DefaultConcurrency = 2
)

// Options configure a Downloader. Zero values fall back to defaults.
type Options struct {
	OutputDir   string
	Delay       time.Duration
	Concurrency int
	SkipExists  bool
	Referer     string
	Client      *http.Client
}

type Downloader struct {
	client      *http.Client
	limiter     *rate.Limiter
	decoder     *imaging.ImageDecoder
	outputDir   string
	concurrency int
	skipExists  bool
	referer     string
}

func New(opts Options) *Downloader {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "./output"
	}
	if opts.Referer == "" {
		opts.Referer = scraper.DefaultReferer
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &Downloader{
		client:      client,
		limiter:     rate.NewLimiter(rate.Every(opts.Delay), 1),
		decoder:     imaging.NewImageDecoder(),
		outputDir:   opts.OutputDir,
		concurrency: opts.Concurrency,
		skipExists:  opts.SkipExists,
		referer:     opts.Referer,
	}
}

// FetchImage downloads one image with the header discipline the CDN
// expects (browser User-Agent plus a site Referer).
func (d *Downloader) FetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %v", err)
	}
	req.Header.Set("User-Agent", scraper.RandomUserAgent())
	req.Header.Set("Referer", d.referer)
	req.Header.Set("Accept", "image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %v", url, err)
	}
	return data, nil
}

// DownloadAlbum fetches, restores and writes every page of an album into
// <outputDir>/<albumID>/. Individual page failures are recorded in the
// summary; only setup errors abort the whole run.
func (d *Downloader) DownloadAlbum(ctx context.Context, album *models.AlbumInfo) (*models.DownloadSummary, error) {
	albumDir := filepath.Join(d.outputDir, strconv.FormatInt(album.ID, 10))
	return d.downloadInto(ctx, album, albumDir)
}

// DownloadChapters scrapes a series listing page and runs the album
// pipeline for every chapter, writing into
// <outputDir>/<series title>/<NNN_chapter title>/ with both titles
// sanitized. Chapter failures are recorded and the remaining chapters
// still run.
func (d *Downloader) DownloadChapters(ctx context.Context, s *scraper.Scraper, listURL string) (*models.BatchSummary, error) {
	title, chapters, err := s.FetchChapters(ctx, listURL)
	if err != nil {
		return nil, err
	}
	if len(chapters) == 0 {
		return nil, fmt.Errorf("no chapters found at %s", listURL)
	}

	base, err := url.Parse(listURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing URL %s: %v", listURL, err)
	}

	seriesDir := filepath.Join(d.outputDir, SanitizeName(title))
	batch := &models.BatchSummary{
		Title:    title,
		Chapters: len(chapters),
		Dir:      seriesDir,
	}

	for _, ch := range chapters {
		ref, err := url.Parse(ch.URL)
		if err != nil {
			batch.Failures = append(batch.Failures,
				fmt.Sprintf("chapter %d (%s): %v", ch.Episode, ch.URL, err))
			continue
		}
		pageURL := base.ResolveReference(ref).String()

		album, err := s.FetchAlbum(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return batch, ctx.Err()
			}
			batch.Failures = append(batch.Failures,
				fmt.Sprintf("chapter %d (%s): %v", ch.Episode, pageURL, err))
			continue
		}

		chapterDir := filepath.Join(seriesDir,
			fmt.Sprintf("%03d_%s", ch.Episode, SanitizeName(ch.Title)))
		summary, err := d.downloadInto(ctx, album, chapterDir)
		if summary != nil {
			batch.Total += summary.Total
			batch.Downloaded += summary.Downloaded
			batch.Skipped += summary.Skipped
			batch.Failed += summary.Failed
			batch.Failures = append(batch.Failures, summary.Failures...)
		}
		if err != nil {
			if ctx.Err() != nil {
				return batch, err
			}
			batch.Failures = append(batch.Failures,
				fmt.Sprintf("chapter %d (%s): %v", ch.Episode, pageURL, err))
		}
	}
	return batch, nil
}

func (d *Downloader) downloadInto(ctx context.Context, album *models.AlbumInfo, albumDir string) (*models.DownloadSummary, error) {
	if len(album.Images) == 0 {
		return nil, fmt.Errorf("album %d has no images", album.ID)
	}

	if err := os.MkdirAll(albumDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create album directory: %v", err)
	}

	summary := &models.DownloadSummary{
		Total: len(album.Images),
		Dir:   albumDir,
	}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for _, img := range album.Images {
		img := img
		g.Go(func() error {
			result, err := d.downloadOne(ctx, album.ID, img, albumDir)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				summary.Failed++
				summary.Failures = append(summary.Failures,
					fmt.Sprintf("page %d (%s): %v", img.Index, img.URL, err))
			case result == outcomeSkipped:
				summary.Skipped++
			default:
				summary.Downloaded++
			}

			// Page failures are tolerated; keep the group running.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}
	return summary, nil
}

type outcome int

const (
	outcomeDownloaded outcome = iota
	outcomeSkipped
)

func (d *Downloader) downloadOne(ctx context.Context, albumID int64, img models.ImageInfo, albumDir string) (outcome, error) {
	if d.skipExists {
		if existing := findExisting(albumDir, img.Index, img.PhotoID); existing != "" {
			return outcomeSkipped, nil
		}
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return outcomeDownloaded, err
	}

	data, err := d.FetchImage(ctx, img.URL)
	if err != nil {
		return outcomeDownloaded, err
	}

	decoded, format, err := d.decoder.Decode(data)
	if err != nil {
		return outcomeDownloaded, err
	}

	segments := 1
	if descramble.Scrambled(albumID) {
		segments, err = descramble.SegmentCount(albumID, img.PhotoID)
		if err != nil {
			return outcomeDownloaded, err
		}
	}

	restored := decoded
	if segments > 1 {
		restored, err = descramble.Restore(decoded, segments)
		if err != nil {
			return outcomeDownloaded, err
		}
	}

	encoded, _, err := d.decoder.Encode(restored, format)
	if err != nil {
		return outcomeDownloaded, err
	}

	path := filepath.Join(albumDir, pageFilename(img.Index, img.PhotoID, format))
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return outcomeDownloaded, fmt.Errorf("failed to write %s: %v", path, err)
	}
	return outcomeDownloaded, nil
}

// pageFilename keeps the site's five-digit photo numbering so a directory
// listing sorts in reading order.
func pageFilename(index int, photoID int64, sourceFormat string) string {
	return fmt.Sprintf("%04d_%05d%s", index, photoID, imaging.OutputExt(sourceFormat))
}

// findExisting reports any previously written file for the page,
// regardless of which extension it was encoded with.
func findExisting(albumDir string, index int, photoID int64) string {
	prefix := fmt.Sprintf("%04d_%05d", index, photoID)
	entries, err := os.ReadDir(albumDir)
	if err != nil {
		return ""
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return filepath.Join(albumDir, names[0])
}

var unsafeNameChars = regexp.MustCompile(`[<>:"|?*]`)

// SanitizeName turns an album title into a safe directory name: path
// traversal and separator characters are stripped, length is capped.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, ". ")
	// Cap in runes, not bytes: the site's titles are mostly CJK and a
	// byte cut could split a character.
	if utf8.RuneCountInString(name) > 200 {
		name = string([]rune(name)[:200])
	}
	if name == "" {
		return "untitled"
	}
	return name
}
