package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// queryRequest mirrors the kensaku API request model.
type queryRequest struct {
	Keyword string `json:"keyword"`
	URL     string `json:"url,omitempty"`
}

// queryResponse mirrors both response modes of the kensaku API; the mode
// tag says which fields are populated.
type queryResponse struct {
	Mode    string `json:"mode"`
	Keyword string `json:"keyword"`

	// search mode
	Results []struct {
		Title      string `json:"title"`
		URL        string `json:"url"`
		Snippet    string `json:"snippet"`
		DisplayURL string `json:"display_url"`
	} `json:"results"`
	ResultCount int `json:"result_count"`

	// scrape mode
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Matches     []string `json:"matches"`
	MatchCount  int      `json:"match_count"`

	Images []struct {
		OriginalURL string `json:"original_url"`
		S3URL       string `json:"s3_url"`
		Alt         string `json:"alt"`
	} `json:"images"`
	ImageCount int `json:"image_count"`

	Error string `json:"error"`
}

func main() {
	apiURL := os.Getenv("KENSAKU_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("KENSAKU_API_KEY")

	s := server.NewMCPServer(
		"kensaku",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	webSearchTool := mcp.NewTool("web_search",
		mcp.WithDescription("Search the web for a keyword and return titles, URLs and snippets."),
		mcp.WithString("keyword",
			mcp.Required(),
			mcp.Description("The keyword to search for"),
		),
	)
	s.AddTool(webSearchTool, handleQuery(apiURL, apiKey, false))

	scrapePageTool := mcp.NewTool("scrape_page",
		mcp.WithDescription("Fetch a web page and return the text blocks that mention a keyword, plus the page title and description."),
		mcp.WithString("keyword",
			mcp.Required(),
			mcp.Description("The keyword to look for in the page"),
		),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page to scrape"),
		),
	)
	s.AddTool(scrapePageTool, handleQuery(apiURL, apiKey, true))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// handleQuery calls POST /api/v1/query in either mode and formats the
// response as plain text for the MCP client.
func handleQuery(apiURL, apiKey string, scrape bool) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		keyword, err := request.RequireString("keyword")
		if err != nil {
			return mcp.NewToolResultError("keyword is required"), nil
		}

		reqBody := queryRequest{Keyword: keyword}
		if scrape {
			pageURL, err := request.RequireString("url")
			if err != nil {
				return mcp.NewToolResultError("url is required"), nil
			}
			reqBody.URL = pageURL
		}

		body, err := json.Marshal(reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/query", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if apiKey != "" {
			httpReq.Header.Set("X-API-Key", apiKey)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var queryResp queryResponse
		if err := json.Unmarshal(respBody, &queryResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if resp.StatusCode != http.StatusOK {
			msg := queryResp.Error
			if msg == "" {
				msg = fmt.Sprintf("API returned status %d", resp.StatusCode)
			}
			return mcp.NewToolResultError(msg), nil
		}

		return mcp.NewToolResultText(formatResult(&queryResp)), nil
	}
}

func formatResult(r *queryResponse) string {
	var b strings.Builder

	switch r.Mode {
	case "scrape":
		fmt.Fprintf(&b, "Title: %s\nSource: %s\n", r.Title, r.URL)
		if r.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", r.Description)
		}
		fmt.Fprintf(&b, "\n%d match(es) for %q:\n", r.MatchCount, r.Keyword)
		for i, m := range r.Matches {
			fmt.Fprintf(&b, "%d. %s\n", i+1, m)
		}
	default:
		fmt.Fprintf(&b, "%d result(s) for %q:\n", r.ResultCount, r.Keyword)
		for i, hit := range r.Results {
			fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, hit.Title, hit.URL)
			if hit.Snippet != "" {
				fmt.Fprintf(&b, "   %s\n", hit.Snippet)
			}
		}
	}

	if r.ImageCount > 0 {
		fmt.Fprintf(&b, "\n%d image(s) mirrored:\n", r.ImageCount)
		for _, img := range r.Images {
			fmt.Fprintf(&b, "- %s\n", img.S3URL)
		}
	}

	return b.String()
}
