package itinerary

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/manike-backend/internal/domain/trip"
	"github.com/yungbote/manike-backend/internal/observability"
	"github.com/yungbote/manike-backend/internal/pkg/dbctx"
	"github.com/yungbote/manike-backend/internal/platform/gcp"
	"github.com/yungbote/manike-backend/internal/platform/localmedia"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

// CompileResult reports a synchronous compile (compiled with a URL) or an accepted
// asynchronous one (processing, URL filled in later by the worker).
type CompileResult struct {
	VideoURL string
	Status   string
	Async    bool
}

type VideoCompiler interface {
	Compile(ctx context.Context, clipURLs []string, itineraryID, tenantID uuid.UUID) (CompileResult, error)
}

// FinalVideoKey is the object key of an itinerary's compiled video. The worker uses it to
// detect output from an earlier attempt.
func FinalVideoKey(tenantID, itineraryID uuid.UUID) string {
	return fmt.Sprintf("tenants/%s/final-video/%s.mp4", tenantID, itineraryID)
}

// LocalCompiler stitches clips with ffmpeg in-process and uploads the result.
type LocalCompiler struct {
	media  localmedia.Tools
	bucket gcp.BucketService
	log    *logger.Logger
}

func NewLocalCompiler(media localmedia.Tools, bucket gcp.BucketService, log *logger.Logger) *LocalCompiler {
	return &LocalCompiler{media: media, bucket: bucket, log: log.With("service", "LocalVideoCompiler")}
}

func (c *LocalCompiler) Compile(ctx context.Context, clipURLs []string, itineraryID, tenantID uuid.UUID) (CompileResult, error) {
	start := time.Now()
	url, err := StitchAndUpload(ctx, c.media, c.bucket, clipURLs, tenantID, itineraryID)
	if err != nil {
		observability.Current().ObserveCompile("local", types.VideoStatusFailed, time.Since(start))
		return CompileResult{}, err
	}
	observability.Current().ObserveCompile("local", types.VideoStatusCompiled, time.Since(start))
	c.log.Info("Final video compiled", "itinerary_id", itineraryID, "clips", len(clipURLs))
	return CompileResult{VideoURL: url, Status: types.VideoStatusCompiled}, nil
}

// StitchAndUpload concatenates clips into a temp file and uploads it under FinalVideoKey.
func StitchAndUpload(ctx context.Context, media localmedia.Tools, bucket gcp.BucketService, clipURLs []string, tenantID, itineraryID uuid.UUID) (string, error) {
	if media == nil || bucket == nil {
		return "", fmt.Errorf("video compiler is not configured")
	}
	out, cleanup, err := media.TempPath(".mp4")
	if err != nil {
		return "", err
	}
	defer cleanup()

	if _, err := media.ConcatClips(ctx, clipURLs, out); err != nil {
		return "", fmt.Errorf("unable to compile final video due to incompatible clip encoding/timestamps: %w", err)
	}
	f, err := os.Open(out)
	if err != nil {
		return "", err
	}
	defer f.Close()

	url, err := bucket.UploadFile(dbctx.Context{Ctx: ctx}, gcp.BucketCategoryVideo, FinalVideoKey(tenantID, itineraryID), f)
	if err != nil {
		return "", fmt.Errorf("upload final video: %w", err)
	}
	return url, nil
}
