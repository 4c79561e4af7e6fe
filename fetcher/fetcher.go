package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"github.com/kensaku-dev/kensaku/config"
	"github.com/kensaku-dev/kensaku/models"
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// maxRedirects is the redirect ceiling for a single fetch.
const maxRedirects = 10

var errTooManyRedirects = errors.New("too many redirects")

// Result is one fetched page: final URL after redirects, raw bytes, and the
// body decoded to UTF-8 text.
type Result struct {
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
	Text        string
}

// Fetcher performs single-attempt, timeout-bounded HTTP GETs with a
// browser-like identity: Chrome headers plus a Chrome TLS fingerprint.
type Fetcher struct {
	client       *http.Client
	pageTimeout  time.Duration
	imageTimeout time.Duration
	maxBodyBytes int64
}

// New creates a Fetcher from config.
func New(cfg config.FetchConfig) *Fetcher {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialTLSChrome(ctx, network, addr, cfg.Proxy)
		},
	}
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return errTooManyRedirects
				}
				return nil
			},
		},
		pageTimeout:  cfg.PageTimeout,
		imageTimeout: cfg.ImageTimeout,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// FetchPage retrieves the target page. Failures come back as a
// *models.QueryError so the handler can map them to a status; any non-2xx
// response is a hard fault here.
func (f *Fetcher) FetchPage(ctx context.Context, targetURL string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, f.pageTimeout)
	defer cancel()

	resp, err := f.get(ctx, targetURL)
	if err != nil {
		return nil, f.classify(err, f.pageTimeout)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, f.classify(err, f.pageTimeout)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, models.NewQueryError(models.ErrCodeUpstreamHTTP,
			fmt.Sprintf("upstream HTTP error: %d", resp.StatusCode), nil)
	}

	contentType := resp.Header.Get("Content-Type")
	return &Result{
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
		Text:        decodeText(body, contentType),
	}, nil
}

// FetchImage retrieves one image asset under the tighter image budget.
// Errors are plain; the harvester treats them as a per-image skip.
func (f *Fetcher) FetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.imageTimeout)
	defer cancel()

	resp, err := f.get(ctx, imageURL)
	if err != nil {
		return nil, "", fmt.Errorf("image fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("image fetch: HTTP %d for %s", resp.StatusCode, imageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("image fetch: read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return body, contentType, nil
}

func (f *Fetcher) get(ctx context.Context, targetURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja,en-US;q=0.7,en;q=0.3")
	// Accept-Encoding is left to the transport so gzip is decompressed
	// transparently.

	return f.client.Do(req)
}

// classify turns a transport-level failure into a typed QueryError.
func (f *Fetcher) classify(err error, budget time.Duration) *models.QueryError {
	switch {
	case errors.Is(err, errTooManyRedirects):
		return models.NewQueryError(models.ErrCodeUpstreamTransport, "too many redirects", err)
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		return models.NewQueryError(models.ErrCodeUpstreamTimeout,
			fmt.Sprintf("upstream request timed out after %s", budget), err)
	case errors.Is(err, context.Canceled):
		return models.NewQueryError(models.ErrCodeUpstreamTimeout, "request canceled", err)
	default:
		return models.NewQueryError(models.ErrCodeUpstreamTransport,
			fmt.Sprintf("request failed: %v", err), err)
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// decodeText converts raw response bytes to UTF-8 text. Declared encodings
// (Content-Type charset, BOM, in-document meta) win; when nothing usable is
// declared, a statistical detector runs over the bytes. If that also fails,
// the bytes are taken as UTF-8. Scraped sites mis-declare charsets often
// enough that skipping detection produces mojibake in the extracted text.
func decodeText(body []byte, contentType string) string {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if !certain && name == "windows-1252" {
		// windows-1252 here is just the HTML default, not a declaration.
		enc = nil
		if det, err := chardet.NewHtmlDetector().DetectBest(body); err == nil {
			if e, _ := charset.Lookup(strings.ToLower(det.Charset)); e != nil {
				enc = e
			}
		}
		if enc == nil {
			return string(body)
		}
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(body), enc.NewDecoder()))
	if err != nil {
		return string(body)
	}
	return string(decoded)
}
