package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kensaku-dev/kensaku/config"
	"github.com/kensaku-dev/kensaku/fetcher"
	"github.com/kensaku-dev/kensaku/harvester"
	"github.com/kensaku-dev/kensaku/models"
	"github.com/kensaku-dev/kensaku/search"
)

func newTestRouter(searchBaseURL string) *gin.Engine {
	gin.SetMode(gin.TestMode)

	f := fetcher.New(config.FetchConfig{
		PageTimeout:  2 * time.Second,
		ImageTimeout: 2 * time.Second,
		MaxBodyBytes: 10 * 1024 * 1024,
	})
	sc := search.NewClient(config.SearchConfig{
		APIKey:  "test-token",
		BaseURL: searchBaseURL,
		Count:   10,
		Timeout: 2 * time.Second,
	})
	hv := harvester.New(f, nil, 10) // no bucket configured

	r := gin.New()
	r.POST("/query", Query(f, sc, hv, 20, 10))
	return r
}

func doQuery(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestQuery_MalformedJSONIs400(t *testing.T) {
	w := doQuery(t, newTestRouter("http://unused.test"), `{"keyword": `)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Error == "" {
		t.Errorf("body %q is not an error envelope", w.Body.String())
	}
}

func TestQuery_MissingKeywordIs400(t *testing.T) {
	for _, body := range []string{`{}`, `{"keyword": "   "}`, `{"url": "https://x.test"}`} {
		w := doQuery(t, newTestRouter("http://unused.test"), body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, w.Code)
		}
	}
}

func TestQuery_SearchMode(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"web": {"results": [
			{"title": "ねこ百科", "url": "https://neko.test/", "description": "猫の話",
			 "meta_url": {"hostname": "neko.test"}}
		]}}`)
	}))
	defer stub.Close()

	w := doQuery(t, newTestRouter(stub.URL), `{"keyword": "猫"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp models.SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Mode != models.ModeSearch {
		t.Errorf("mode = %q, want %q", resp.Mode, models.ModeSearch)
	}
	if resp.ResultCount != 1 || len(resp.Results) != 1 {
		t.Fatalf("results = %+v", resp.Results)
	}
	if resp.Results[0].Title != "ねこ百科" {
		t.Errorf("title = %q", resp.Results[0].Title)
	}
	// No bucket configured: image list present but empty.
	if resp.Images == nil || resp.ImageCount != 0 {
		t.Errorf("images = %v, image_count = %d", resp.Images, resp.ImageCount)
	}
}

func TestQuery_ScrapeMode(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Ferret Care</title>
			<meta name="description" content="all about ferrets"></head><body>
			<nav><p>ferret navigation noise with plenty of characters</p></nav>
			<p>ferrets enjoy long naps in hammocks during the day</p>
			</body></html>`)
	}))
	defer page.Close()

	w := doQuery(t, newTestRouter("http://unused.test"),
		fmt.Sprintf(`{"keyword": "ferret", "url": %q}`, page.URL))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp models.ScrapeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Mode != models.ModeScrape {
		t.Errorf("mode = %q, want %q", resp.Mode, models.ModeScrape)
	}
	if resp.Title != "Ferret Care" || resp.Description != "all about ferrets" {
		t.Errorf("title/description = %q / %q", resp.Title, resp.Description)
	}
	if resp.MatchCount != 1 || len(resp.Matches) != 1 {
		t.Fatalf("matches = %v (count %d)", resp.Matches, resp.MatchCount)
	}
	if resp.Matches[0] != "ferrets enjoy long naps in hammocks during the day" {
		t.Errorf("match = %q", resp.Matches[0])
	}
	if resp.URL != page.URL {
		t.Errorf("url = %q, want the requested %q", resp.URL, page.URL)
	}
}

func TestQuery_ScrapePageFetch404Is502(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer page.Close()

	w := doQuery(t, newTestRouter("http://unused.test"),
		fmt.Sprintf(`{"keyword": "foo", "url": %q}`, page.URL))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502 (body %s)", w.Code, w.Body.String())
	}
	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !strings.Contains(resp.Error, "404") {
		t.Errorf("error = %q, want the upstream 404 mentioned", resp.Error)
	}
}

func TestQuery_SearchAPIFailureIs502(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer stub.Close()

	w := doQuery(t, newTestRouter(stub.URL), `{"keyword": "foo"}`)
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestQuery_SearchAPITimeoutIs504(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer stub.Close()

	gin.SetMode(gin.TestMode)
	f := fetcher.New(config.FetchConfig{PageTimeout: time.Second, ImageTimeout: time.Second, MaxBodyBytes: 1024})
	sc := search.NewClient(config.SearchConfig{BaseURL: stub.URL, Count: 10, Timeout: 50 * time.Millisecond})
	r := gin.New()
	r.POST("/query", Query(f, sc, harvester.New(f, nil, 10), 20, 10))

	w := doQuery(t, r, `{"keyword": "foo"}`)
	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", w.Code)
	}
}
