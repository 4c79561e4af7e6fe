package store

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"mime"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kensaku-dev/kensaku/config"
)

// S3API is the slice of the S3 client the store uses; tests stub it.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// AssetStore mirrors image assets into an S3 bucket.
//
// Keys are content-addressed by source URL: images/<md5(url)><ext>. Fetching
// the same URL twice writes the same key, so repeat scrapes overwrite in
// place instead of accumulating duplicates.
type AssetStore struct {
	api      S3API
	bucket   string
	region   string
	endpoint string
}

// New builds an AssetStore from config using the default AWS credential
// chain. A non-empty Endpoint switches the client to path-style addressing
// for local dev stacks.
func New(ctx context.Context, cfg config.StorageConfig) (*AssetStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("store: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &AssetStore{
		api:      client,
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		endpoint: cfg.Endpoint,
	}, nil
}

// NewWithClient builds an AssetStore around an existing client; used by tests.
func NewWithClient(api S3API, cfg config.StorageConfig) *AssetStore {
	return &AssetStore{api: api, bucket: cfg.Bucket, region: cfg.Region, endpoint: cfg.Endpoint}
}

// Put uploads one image and returns its public URL. Content types outside
// image/* and upload failures return an error; callers treat both as a
// per-image skip, never a request failure.
func (s *AssetStore) Put(ctx context.Context, sourceURL string, body []byte, contentType string) (string, error) {
	ct := normalizeContentType(contentType)
	if !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("store: not an image content type: %q", ct)
	}

	key := s.Key(sourceURL, ct)
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(ct),
	})
	if err != nil {
		return "", fmt.Errorf("store: put %s: %w", key, err)
	}

	return s.PublicURL(key), nil
}

// Key derives the deterministic object key for a source URL and a
// normalized content type.
func (s *AssetStore) Key(sourceURL, contentType string) string {
	sum := md5.Sum([]byte(sourceURL))
	return "images/" + hex.EncodeToString(sum[:]) + extensionFor(contentType)
}

// PublicURL is the unsigned, deterministic URL of a stored key.
func (s *AssetStore) PublicURL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.endpoint, "/"), s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// normalizeContentType strips parameters (e.g. "; charset=...") and
// lowercases the media type.
func normalizeContentType(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

// Common image types get fixed extensions so keys stay stable across
// platforms; anything else falls through to the system MIME table.
var extByType = map[string]string{
	"image/jpeg":    ".jpg",
	"image/pjpeg":   ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/bmp":     ".bmp",
	"image/tiff":    ".tiff",
	"image/avif":    ".avif",
	"image/svg+xml": ".svg",
	"image/x-icon":  ".ico",
}

func extensionFor(contentType string) string {
	if ext, ok := extByType[contentType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		ext := exts[0]
		if ext == ".jpe" {
			ext = ".jpg"
		}
		return ext
	}
	return ".jpg"
}
