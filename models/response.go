package models

// Mode discriminator values for the top-level response envelope.
const (
	ModeSearch = "search"
	ModeScrape = "scrape"
)

// SearchHit is one web-search result.
type SearchHit struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Snippet    string `json:"snippet"`
	DisplayURL string `json:"display_url"`
}

// ImageRef is an image candidate before upload: an absolute source URL plus
// its alt text. Candidates that fail to fetch or upload are discarded.
type ImageRef struct {
	URL string
	Alt string
}

// StoredImage is an image that was successfully mirrored to object storage.
type StoredImage struct {
	OriginalURL string `json:"original_url"`
	S3URL       string `json:"s3_url"`
	Alt         string `json:"alt"`
}

// SearchResponse is the 200 body when no url was supplied.
type SearchResponse struct {
	Mode        string        `json:"mode"`
	Keyword     string        `json:"keyword"`
	Results     []SearchHit   `json:"results"`
	ResultCount int           `json:"result_count"`
	Images      []StoredImage `json:"images"`
	ImageCount  int           `json:"image_count"`
}

// ScrapeResponse is the 200 body when a url was supplied.
type ScrapeResponse struct {
	Mode        string `json:"mode"`
	Keyword     string `json:"keyword"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`

	// Matches holds keyword-matching text blocks in document order,
	// truncated to the configured maximum. MatchCount is the total number
	// of matches found before truncation.
	Matches    []string `json:"matches"`
	MatchCount int      `json:"match_count"`

	Images     []StoredImage `json:"images"`
	ImageCount int           `json:"image_count"`
}

// ErrorResponse is the body of every non-200 response. The message is
// human-readable only; the HTTP status carries the classification.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	Version          string `json:"version"`
	ImageMirroring   bool   `json:"image_mirroring"`
	SearchConfigured bool   `json:"search_configured"`
}
