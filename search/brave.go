// Package search queries the Brave Search API for web and image results.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kensaku-dev/kensaku/config"
	"github.com/kensaku-dev/kensaku/models"
)

// Client is a Brave Search API client. Web search is the primary payload;
// image search is a soft dependency used only when image mirroring is on.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	count      int
	lang       string
	country    string
}

// NewClient creates a Client from config.
func NewClient(cfg config.SearchConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		count:      cfg.Count,
		lang:       cfg.Lang,
		country:    cfg.Country,
	}
}

type braveWebResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
			MetaURL     struct {
				Hostname string `json:"hostname"`
			} `json:"meta_url"`
		} `json:"results"`
	} `json:"web"`
}

type braveImageResponse struct {
	Results []struct {
		Title      string `json:"title"`
		Properties struct {
			URL string `json:"url"`
		} `json:"properties"`
	} `json:"results"`
}

// Web runs one web-search request and maps provider fields onto SearchHit.
// Missing provider fields become empty strings, never errors. Failures come
// back as *models.QueryError and abort the whole request.
func (c *Client) Web(ctx context.Context, keyword string) ([]models.SearchHit, error) {
	params := url.Values{}
	params.Set("q", keyword)
	params.Set("count", strconv.Itoa(c.count))
	if c.lang != "" {
		params.Set("search_lang", c.lang)
	}
	if c.country != "" {
		params.Set("country", c.country)
	}

	body, err := c.get(ctx, "/web/search", params)
	if err != nil {
		return nil, err
	}

	var resp braveWebResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, models.NewQueryError(models.ErrCodeUpstreamTransport,
			"search API returned malformed JSON", err)
	}

	hits := make([]models.SearchHit, 0, len(resp.Web.Results))
	for _, item := range resp.Web.Results {
		hits = append(hits, models.SearchHit{
			Title:      item.Title,
			URL:        item.URL,
			Snippet:    item.Description,
			DisplayURL: item.MetaURL.Hostname,
		})
	}
	return hits, nil
}

// Images runs one image-search request and returns at most limit candidates.
// Callers treat any error here as "no images"; web results still ship.
func (c *Client) Images(ctx context.Context, keyword string, limit int) ([]models.ImageRef, error) {
	params := url.Values{}
	params.Set("q", keyword)
	params.Set("count", strconv.Itoa(limit))
	params.Set("safesearch", "strict")

	body, err := c.get(ctx, "/images/search", params)
	if err != nil {
		return nil, err
	}

	var resp braveImageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("search: image response: %w", err)
	}

	refs := make([]models.ImageRef, 0, limit)
	for _, item := range resp.Results {
		if len(refs) >= limit {
			break
		}
		if item.Properties.URL == "" {
			continue
		}
		refs = append(refs, models.ImageRef{URL: item.Properties.URL, Alt: item.Title})
	}
	return refs, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, models.NewQueryError(models.ErrCodeInternal, "search: build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, models.NewQueryError(models.ErrCodeUpstreamTimeout,
				"search API request timed out", err)
		}
		return nil, models.NewQueryError(models.ErrCodeUpstreamTransport,
			fmt.Sprintf("search API request failed: %v", err), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewQueryError(models.ErrCodeUpstreamTransport,
			"search API response read failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, models.NewQueryError(models.ErrCodeUpstreamHTTP,
			fmt.Sprintf("search API returned HTTP %d", resp.StatusCode), nil)
	}
	return body, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
