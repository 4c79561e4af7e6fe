package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kensaku-dev/kensaku/config"
	"github.com/kensaku-dev/kensaku/models"
)

func testClient(baseURL string) *Client {
	return NewClient(config.SearchConfig{
		APIKey:  "test-token",
		BaseURL: baseURL,
		Count:   10,
		Lang:    "ja",
		Country: "jp",
		Timeout: 2 * time.Second,
	})
}

func TestWeb_MapsProviderFields(t *testing.T) {
	var gotToken, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/web/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotToken = r.Header.Get("X-Subscription-Token")
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, `{
			"web": {"results": [
				{"title": "Cats", "url": "https://cats.test/", "description": "about cats",
				 "meta_url": {"hostname": "cats.test"}},
				{"url": "https://no-title.test/"}
			]}
		}`)
	}))
	defer srv.Close()

	hits, err := testClient(srv.URL).Web(context.Background(), "猫")
	if err != nil {
		t.Fatalf("Web: %v", err)
	}
	if gotToken != "test-token" {
		t.Errorf("subscription token = %q", gotToken)
	}
	if gotQuery != "猫" {
		t.Errorf("query = %q, want 猫", gotQuery)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	want := models.SearchHit{Title: "Cats", URL: "https://cats.test/", Snippet: "about cats", DisplayURL: "cats.test"}
	if hits[0] != want {
		t.Errorf("hit[0] = %+v, want %+v", hits[0], want)
	}
	// Missing provider fields default to empty strings.
	if hits[1].Title != "" || hits[1].Snippet != "" || hits[1].DisplayURL != "" {
		t.Errorf("missing fields not defaulted: %+v", hits[1])
	}
}

func TestWeb_Non2xxIsUpstreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Web(context.Background(), "x")
	var qe *models.QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("error %v is not a QueryError", err)
	}
	if qe.Code != models.ErrCodeUpstreamHTTP {
		t.Errorf("code = %q, want %q", qe.Code, models.ErrCodeUpstreamHTTP)
	}
}

func TestImages_CapsAndSkipsEmptyURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("safesearch"); got != "strict" {
			t.Errorf("safesearch = %q, want strict", got)
		}
		fmt.Fprint(w, `{"results": [
			{"title": "one", "properties": {"url": "https://img.test/1.jpg"}},
			{"title": "empty", "properties": {"url": ""}},
			{"title": "two", "properties": {"url": "https://img.test/2.jpg"}},
			{"title": "three", "properties": {"url": "https://img.test/3.jpg"}}
		]}`)
	}))
	defer srv.Close()

	refs, err := testClient(srv.URL).Images(context.Background(), "x", 2)
	if err != nil {
		t.Fatalf("Images: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("got %d refs, want the limit of 2", len(refs))
	}
	if refs[0].URL != "https://img.test/1.jpg" || refs[1].URL != "https://img.test/2.jpg" {
		t.Errorf("refs = %+v", refs)
	}
	if refs[0].Alt != "one" {
		t.Errorf("alt = %q, want the result title", refs[0].Alt)
	}
}

func TestImages_FailureIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).Images(context.Background(), "x", 10); err == nil {
		t.Fatal("expected error; the caller decides it is soft")
	}
}
