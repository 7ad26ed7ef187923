// Package scraper pulls album metadata and image URLs out of the site's pages
package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"comicrestore-backend/models"

	"github.com/PuerkitoBio/goquery"
)

const DefaultReferer = "https://18comic.vip/"

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
}

var (
	albumIDPattern = regexp.MustCompile(`/photo/(\d+)`)
	photoIDPattern = regexp.MustCompile(`/(\d+)\.\w+$`)
)

// RandomUserAgent picks one of the browser User-Agent strings the site
// is known to accept.
func RandomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

// ExtractAlbumID parses the album ID out of a photo page URL such as
// https://18comic.vip/photo/1223474.
func ExtractAlbumID(url string) (int64, error) {
	match := albumIDPattern.FindStringSubmatch(url)
	if match == nil {
		return 0, fmt.Errorf("cannot extract album id from URL: %s", url)
	}
	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid album id in URL %s: %v", url, err)
	}
	return id, nil
}

// ExtractPhotoID parses the photo ID out of an image URL such as
// https://cdn-msp.18comic.vip/media/photos/1223474/00001.webp. The site
// zero-pads the ID in the path; the returned value is the plain integer.
func ExtractPhotoID(url string) (int64, error) {
	match := photoIDPattern.FindStringSubmatch(url)
	if match == nil {
		return 0, fmt.Errorf("cannot extract photo id from URL: %s", url)
	}
	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid photo id in URL %s: %v", url, err)
	}
	return id, nil
}

type Scraper struct {
	client  *http.Client
	referer string
}

func NewScraper() *Scraper {
	return &Scraper{
		client:  &http.Client{Timeout: 60 * time.Second},
		referer: DefaultReferer,
	}
}

// NewScraperWithClient is used by tests and callers that need their own
// transport or referer.
func NewScraperWithClient(client *http.Client, referer string) *Scraper {
	return &Scraper{client: client, referer: referer}
}

func (s *Scraper) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %v", err)
	}
	req.Header.Set("User-Agent", RandomUserAgent())
	req.Header.Set("Referer", s.referer)
	req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %v", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}
	return resp, nil
}

// FetchAlbum loads a photo page and extracts its title and the list of
// page images, in reading order.
func (s *Scraper) FetchAlbum(ctx context.Context, pageURL string) (*models.AlbumInfo, error) {
	albumID, err := ExtractAlbumID(pageURL)
	if err != nil {
		return nil, err
	}

	resp, err := s.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page %s: %v", pageURL, err)
	}

	title := strings.TrimSpace(doc.Find("h1").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	images := extractImages(doc)

	return &models.AlbumInfo{
		ID:     albumID,
		Title:  title,
		Images: images,
	}, nil
}

// imageSelectors is the ladder of selectors the site has used for lazy
// loaded page images, most specific first.
var imageSelectors = []string{
	"img.lazy_img[data-original]",
	"img[id^=album_photo_]",
	".scramble-page img[data-original]",
	".panel-body img[data-original]",
}

func extractImages(doc *goquery.Document) []models.ImageInfo {
	var urls []string
	for _, selector := range imageSelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			url, ok := sel.Attr("data-original")
			if !ok {
				url, _ = sel.Attr("src")
			}
			if url != "" && strings.Contains(url, "/media/photos/") {
				urls = append(urls, url)
			}
		})
		if len(urls) > 0 {
			break
		}
	}

	// Dedupe while keeping page order.
	seen := make(map[string]bool)
	var images []models.ImageInfo
	for _, url := range urls {
		if seen[url] {
			continue
		}
		seen[url] = true

		photoID, err := ExtractPhotoID(url)
		if err != nil {
			continue
		}
		images = append(images, models.ImageInfo{
			URL:     url,
			PhotoID: photoID,
			Index:   len(images) + 1,
		})
	}
	return images
}

// FetchChapters loads an album listing page and extracts its title plus
// the chapter links, deduped and in page order.
func (s *Scraper) FetchChapters(ctx context.Context, albumURL string) (string, []models.ChapterInfo, error) {
	resp, err := s.get(ctx, albumURL)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse page %s: %v", albumURL, err)
	}

	title := strings.TrimSpace(doc.Find("h1").First().Text())

	seen := make(map[string]bool)
	var chapters []models.ChapterInfo
	doc.Find(`a[href*="/photo/"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || seen[href] {
			return
		}
		seen[href] = true

		text := strings.TrimSpace(sel.Text())
		// Links with no real label are paging buttons, not chapters.
		if utf8.RuneCountInString(text) < 2 {
			return
		}

		photoID, err := ExtractAlbumID(href)
		if err != nil {
			return
		}
		chapters = append(chapters, models.ChapterInfo{
			Title:   text,
			URL:     href,
			PhotoID: photoID,
			Episode: len(chapters) + 1,
		})
	})

	return title, chapters, nil
}
