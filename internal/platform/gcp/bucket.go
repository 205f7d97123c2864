package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/manike-backend/internal/pkg/dbctx"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

type BucketCategory string

const (
	// BucketCategoryMedia holds uploaded library images and clips.
	BucketCategoryMedia BucketCategory = "media"
	// BucketCategoryVideo holds compiled itinerary videos.
	BucketCategoryVideo BucketCategory = "video"
)

type BucketService interface {
	UploadFile(dbc dbctx.Context, category BucketCategory, key string, file io.Reader) (string, error)
	DeleteFile(dbc dbctx.Context, category BucketCategory, key string) error
	// DeleteByURL removes the object behind a public URL produced by this service.
	// URLs that do not belong to a configured bucket are ignored.
	DeleteByURL(ctx context.Context, publicURL string) error
	Exists(ctx context.Context, category BucketCategory, key string) (bool, error)
	GetPublicURL(category BucketCategory, key string) string
}

type bucketService struct {
	log    *logger.Logger
	client *storage.Client
	urls   urlScheme
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	cfg, err := BucketConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("resolve object storage config: %w", err)
	}
	return NewBucketServiceWithConfig(log, cfg)
}

func NewBucketServiceWithConfig(log *logger.Logger, cfg BucketConfig) (BucketService, error) {
	if err := ValidateBucketConfig(cfg); err != nil {
		return nil, err
	}
	ctx := context.Background()
	var opts []option.ClientOption
	if cfg.Mode == StorageModeGCSEmulator {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
		opts = append(opts, option.WithoutAuthentication())
	} else {
		opts = append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	bs := &bucketService{
		log:    log.With("service", "BucketService"),
		client: client,
		urls:   newURLScheme(cfg),
	}
	bs.log.Info("Object storage initialized",
		"mode", cfg.Mode,
		"media_bucket", cfg.MediaBucket,
		"video_bucket", cfg.VideoBucket,
		"public_base_url", bs.urls.base,
	)
	return bs, nil
}

func (bs *bucketService) UploadFile(dbc dbctx.Context, category BucketCategory, key string, file io.Reader) (string, error) {
	bucket, err := bs.urls.bucketFor(category)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(dbc.Ctx, 2*time.Minute)
	defer cancel()

	w := bs.client.Bucket(bucket).Object(key).NewWriter(ctx)
	if ct := contentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return bs.GetPublicURL(category, key), nil
}

func (bs *bucketService) DeleteFile(dbc dbctx.Context, category BucketCategory, key string) error {
	bucket, err := bs.urls.bucketFor(category)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(dbc.Ctx, 30*time.Second)
	defer cancel()
	if err := bs.client.Bucket(bucket).Object(key).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, bucket, err)
	}
	return nil
}

func (bs *bucketService) DeleteByURL(ctx context.Context, publicURL string) error {
	category, key, ok := bs.urls.keyFromURL(publicURL)
	if !ok {
		bs.log.Debug("Skipping delete for foreign object URL", "url", publicURL)
		return nil
	}
	return bs.DeleteFile(dbctx.Context{Ctx: ctx}, category, key)
}

func (bs *bucketService) Exists(ctx context.Context, category BucketCategory, key string) (bool, error) {
	bucket, err := bs.urls.bucketFor(category)
	if err != nil {
		return false, err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err = bs.client.Bucket(bucket).Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to fetch GCS object attrs: %w", err)
	}
	return true, nil
}

func (bs *bucketService) GetPublicURL(category BucketCategory, key string) string {
	return bs.urls.publicURL(category, key)
}

// urlScheme maps between (category, key) and public object URLs.
type urlScheme struct {
	media string
	video string
	base  string
}

func newURLScheme(cfg BucketConfig) urlScheme {
	base := cfg.PublicBaseURL
	if base == "" && cfg.Mode == StorageModeGCSEmulator {
		base = cfg.EmulatorHost
	}
	if base == "" {
		base = "https://storage.googleapis.com"
	}
	video := cfg.VideoBucket
	if video == "" {
		video = cfg.MediaBucket
	}
	return urlScheme{media: cfg.MediaBucket, video: video, base: strings.TrimRight(base, "/")}
}

func (u urlScheme) bucketFor(category BucketCategory) (string, error) {
	switch category {
	case BucketCategoryMedia:
		return u.media, nil
	case BucketCategoryVideo:
		return u.video, nil
	default:
		return "", fmt.Errorf("unknown bucket category: %s", category)
	}
}

func (u urlScheme) publicURL(category BucketCategory, key string) string {
	bucket, err := u.bucketFor(category)
	if err != nil {
		return key
	}
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	return fmt.Sprintf("%s/%s/%s", u.base, bucket, key)
}

func (u urlScheme) keyFromURL(raw string) (BucketCategory, string, bool) {
	raw = strings.TrimSpace(raw)
	prefix := u.base + "/"
	if !strings.HasPrefix(raw, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(raw, prefix)
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || key == "" {
		return "", "", false
	}
	if unescaped, err := url.PathUnescape(key); err == nil {
		key = unescaped
	}
	// A bucket shared by both categories resolves to video. Deletes hit the same object either way.
	switch bucket {
	case u.video:
		return BucketCategoryVideo, key, true
	case u.media:
		return BucketCategoryMedia, key, true
	}
	return "", "", false
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".gif"):
		return "image/gif"
	case strings.HasSuffix(s, ".mp4"), strings.HasSuffix(s, ".m4v"):
		return "video/mp4"
	case strings.HasSuffix(s, ".webm"):
		return "video/webm"
	case strings.HasSuffix(s, ".mov"):
		return "video/quicktime"
	default:
		return ""
	}
}
