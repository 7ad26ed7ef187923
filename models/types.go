// Package models contain needed models
package models

// RestoreResponse represents the response when image restoration fails
// (successful restorations stream the image itself)
type RestoreResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Segments int    `json:"segments,omitempty"`
}

// SegmentResponse represents the response for a segment-count query
type SegmentResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	AlbumID   int64  `json:"album_id"`
	PhotoID   int64  `json:"photo_id"`
	Segments  int    `json:"segments"`
	Scrambled bool   `json:"scrambled"`
}

// FetchRequest represents the request for downloading a whole album
type FetchRequest struct {
	URL         string `json:"url" binding:"required"`
	OutputDir   string `json:"output_dir"`
	BuildPDF    bool   `json:"build_pdf"`
	Concurrency int    `json:"concurrency"`
	DelayMS     int    `json:"delay_ms"`
}

// FetchResponse represents the response after an album download
type FetchResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	AlbumID    int64  `json:"album_id,omitempty"`
	Title      string `json:"title,omitempty"`
	Total      int    `json:"total"`
	Downloaded int    `json:"downloaded"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
	OutputDir  string `json:"output_dir,omitempty"`
	PDFPath    string `json:"pdf_path,omitempty"`
}

// ChaptersRequest represents the request for listing a series' chapters
type ChaptersRequest struct {
	URL string `json:"url" binding:"required"`
}

// ChapterItem represents one chapter in a chapters response
type ChapterItem struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	PhotoID int64  `json:"photo_id"`
	Episode int    `json:"episode"`
}

// ChaptersResponse represents the response for a chapter listing
type ChaptersResponse struct {
	Success  bool          `json:"success"`
	Message  string        `json:"message,omitempty"`
	Title    string        `json:"title,omitempty"`
	Chapters []ChapterItem `json:"chapters,omitempty"`
}

// BatchRequest represents the request for downloading a whole series
// chapter by chapter
type BatchRequest struct {
	URL         string `json:"url" binding:"required"`
	OutputDir   string `json:"output_dir"`
	Concurrency int    `json:"concurrency"`
	DelayMS     int    `json:"delay_ms"`
}

// BatchResponse represents the response after a series download
type BatchResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Title      string `json:"title,omitempty"`
	Chapters   int    `json:"chapters"`
	Total      int    `json:"total"`
	Downloaded int    `json:"downloaded"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
	OutputDir  string `json:"output_dir,omitempty"`
}

// PDFRequest represents the request for building a PDF from a directory
// of restored pages
type PDFRequest struct {
	Dir      string `json:"dir" binding:"required"`
	MaxWidth int    `json:"max_width"`
}

// ImageInfo represents one page image discovered on an album page
type ImageInfo struct {
	URL     string
	PhotoID int64
	Index   int
}

// AlbumInfo represents a scraped album and its page images
type AlbumInfo struct {
	ID     int64
	Title  string
	Images []ImageInfo
}

// ChapterInfo represents one chapter link found on an album listing page
type ChapterInfo struct {
	Title   string
	URL     string
	PhotoID int64
	Episode int
}

// DownloadSummary represents the outcome of an album download
type DownloadSummary struct {
	Total      int
	Downloaded int
	Skipped    int
	Failed     int
	Dir        string
	Failures   []string
}

// BatchSummary represents the outcome of a chapter-by-chapter series
// download
type BatchSummary struct {
	Title      string
	Chapters   int
	Total      int
	Downloaded int
	Skipped    int
	Failed     int
	Dir        string
	Failures   []string
}
