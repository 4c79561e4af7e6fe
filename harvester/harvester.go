package harvester

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/kensaku-dev/kensaku/models"
)

// ImageFetcher retrieves one image asset. Implemented by fetcher.Fetcher.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, string, error)
}

// BlobPutter uploads one asset and returns its public URL. Implemented by
// store.AssetStore.
type BlobPutter interface {
	Put(ctx context.Context, sourceURL string, body []byte, contentType string) (string, error)
}

// Harvester resolves image candidates and mirrors them through a BlobPutter,
// bounded to maxImages successful uploads per request.
type Harvester struct {
	fetch     ImageFetcher
	store     BlobPutter
	maxImages int
}

// New creates a Harvester. A nil store disables harvesting: both entry
// points then return an empty list without touching the network.
func New(fetch ImageFetcher, store BlobPutter, maxImages int) *Harvester {
	return &Harvester{fetch: fetch, store: store, maxImages: maxImages}
}

// Enabled reports whether a storage destination is configured.
func (h *Harvester) Enabled() bool {
	return h.store != nil
}

// FromDocument walks a parsed (noise-stripped) page for img elements,
// resolves their sources against baseURL, and mirrors them. data: sources
// and non-http(s) resolutions are skipped before any fetch.
func (h *Harvester) FromDocument(ctx context.Context, doc *goquery.Document, baseURL string) []models.StoredImage {
	if !h.Enabled() {
		return []models.StoredImage{}
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return []models.StoredImage{}
	}

	var candidates []models.ImageRef
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		resolved, err := base.Parse(src)
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		candidates = append(candidates, models.ImageRef{
			URL: resolved.String(),
			Alt: s.AttrOr("alt", ""),
		})
	})

	return h.mirror(ctx, candidates)
}

// FromRefs mirrors pre-resolved candidates (the image-search path).
func (h *Harvester) FromRefs(ctx context.Context, refs []models.ImageRef) []models.StoredImage {
	if !h.Enabled() {
		return []models.StoredImage{}
	}
	return h.mirror(ctx, refs)
}

// mirror uploads candidates until maxImages succeed or candidates run out.
//
// Work proceeds in waves: each wave takes the next (maxImages - collected)
// candidates and runs their fetch+upload concurrently, so a failed candidate
// frees its slot for a later one without ever over-collecting. Results are
// gathered by candidate index, which keeps the output in document order
// regardless of completion order. Per-image failures are absorbed here; they
// shrink the result but never fail the request.
func (h *Harvester) mirror(ctx context.Context, candidates []models.ImageRef) []models.StoredImage {
	stored := make([]models.StoredImage, 0, h.maxImages)

	next := 0
	for len(stored) < h.maxImages && next < len(candidates) {
		batch := candidates[next:min(next+h.maxImages-len(stored), len(candidates))]
		next += len(batch)

		results := make([]*models.StoredImage, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		for i, ref := range batch {
			g.Go(func() error {
				body, contentType, err := h.fetch.FetchImage(gctx, ref.URL)
				if err != nil {
					slog.Debug("image skipped: fetch failed", "url", ref.URL, "error", err)
					return nil
				}
				location, err := h.store.Put(gctx, ref.URL, body, contentType)
				if err != nil {
					slog.Debug("image skipped: upload failed", "url", ref.URL, "error", err)
					return nil
				}
				results[i] = &models.StoredImage{
					OriginalURL: ref.URL,
					S3URL:       location,
					Alt:         ref.Alt,
				}
				return nil
			})
		}
		_ = g.Wait() // workers only ever return nil; failures are skips

		for _, r := range results {
			if r != nil {
				stored = append(stored, *r)
			}
		}
	}

	return stored
}
