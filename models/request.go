package models

import "strings"

// QueryRequest is the payload for POST /api/v1/query.
type QueryRequest struct {
	// Keyword is the search/filter term. Required.
	Keyword string `json:"keyword"`

	// URL, when set, switches the request into scrape mode: the page is
	// fetched and filtered for keyword matches instead of running a web
	// search.
	URL string `json:"url,omitempty"`
}

// Normalize trims surrounding whitespace from both fields.
func (r *QueryRequest) Normalize() {
	r.Keyword = strings.TrimSpace(r.Keyword)
	r.URL = strings.TrimSpace(r.URL)
}
