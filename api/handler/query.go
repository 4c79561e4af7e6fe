package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kensaku-dev/kensaku/extractor"
	"github.com/kensaku-dev/kensaku/fetcher"
	"github.com/kensaku-dev/kensaku/harvester"
	"github.com/kensaku-dev/kensaku/models"
	"github.com/kensaku-dev/kensaku/search"
)

// Query returns the handler for POST /api/v1/query.
//
// Dispatch:
//
//	url given  → fetch page → extract keyword matches → mirror page images
//	no url     → web search → mirror image-search results
//
// Page-fetch and web-search faults abort the request with a mapped status;
// per-image faults are absorbed inside the harvester.
func Query(f *fetcher.Fetcher, sc *search.Client, hv *harvester.Harvester, maxMatches, maxImages int) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: "request body is not valid JSON",
			})
			return
		}
		req.Normalize()

		if req.Keyword == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: "keyword is required",
			})
			return
		}

		if req.URL != "" {
			scrape(c, f, hv, req, maxMatches)
			return
		}
		webSearch(c, sc, hv, req, maxImages)
	}
}

func scrape(c *gin.Context, f *fetcher.Fetcher, hv *harvester.Harvester, req models.QueryRequest, maxMatches int) {
	ctx := c.Request.Context()

	res, err := f.FetchPage(ctx, req.URL)
	if err != nil {
		respondError(c, err)
		return
	}

	doc, err := extractor.Parse(res.Text)
	if err != nil {
		respondError(c, models.NewQueryError(models.ErrCodeInternal, "failed to parse page markup", err))
		return
	}

	// Title falls back to the URL the caller asked for; image sources
	// resolve against the final URL so relative paths survive redirects.
	page := extractor.Extract(doc, req.Keyword, req.URL, maxMatches)
	images := hv.FromDocument(ctx, doc, res.FinalURL)

	c.JSON(http.StatusOK, models.ScrapeResponse{
		Mode:        models.ModeScrape,
		Keyword:     req.Keyword,
		URL:         req.URL,
		Title:       page.Title,
		Description: page.Description,
		Matches:     page.Matches,
		MatchCount:  page.MatchCount,
		Images:      images,
		ImageCount:  len(images),
	})
}

func webSearch(c *gin.Context, sc *search.Client, hv *harvester.Harvester, req models.QueryRequest, maxImages int) {
	ctx := c.Request.Context()

	hits, err := sc.Web(ctx, req.Keyword)
	if err != nil {
		respondError(c, err)
		return
	}

	images := []models.StoredImage{}
	if hv.Enabled() {
		refs, err := sc.Images(ctx, req.Keyword, maxImages)
		if err != nil {
			// Soft dependency: web results are the payload, image search
			// failures just leave the images list empty.
			slog.Warn("image search failed", "keyword", req.Keyword, "error", err)
			refs = nil
		}
		images = hv.FromRefs(ctx, refs)
	}

	c.JSON(http.StatusOK, models.SearchResponse{
		Mode:        models.ModeSearch,
		Keyword:     req.Keyword,
		Results:     hits,
		ResultCount: len(hits),
		Images:      images,
		ImageCount:  len(images),
	})
}

// respondError maps a QueryError code to an HTTP status and writes the
// plain {"error": ...} body. Anything untyped is an internal fault.
func respondError(c *gin.Context, err error) {
	var queryErr *models.QueryError
	if !errors.As(err, &queryErr) {
		queryErr = models.NewQueryError(models.ErrCodeInternal, "internal error", err)
	}

	status := http.StatusInternalServerError
	switch queryErr.Code {
	case models.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case models.ErrCodeUpstreamTimeout:
		status = http.StatusGatewayTimeout
	case models.ErrCodeUpstreamHTTP, models.ErrCodeUpstreamTransport:
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		slog.Error("query failed", "error", queryErr)
	}

	c.JSON(status, models.ErrorResponse{Error: queryErr.Message})
}
