package videocompile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"

	types "github.com/yungbote/manike-backend/internal/domain/trip"
	"github.com/yungbote/manike-backend/internal/modules/itinerary"
	"github.com/yungbote/manike-backend/internal/observability"
	"github.com/yungbote/manike-backend/internal/platform/gcp"
	"github.com/yungbote/manike-backend/internal/platform/localmedia"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

// Recorder persists compile outcomes. *itinerary.Lifecycle satisfies it.
type Recorder interface {
	MarkCompiled(ctx context.Context, itineraryID uuid.UUID, videoURL string) error
	MarkFailed(ctx context.Context, itineraryID uuid.UUID, reason string) error
}

type Activities struct {
	Log    *logger.Logger
	Media  localmedia.Tools
	Bucket gcp.BucketService
	Videos Recorder
}

// Stitch skips the encode when the output object already exists so retried workflows
// never re-encode.
func (a *Activities) Stitch(ctx context.Context, in Input) (StitchResult, error) {
	itineraryID, tenantID, err := parseIDs(in.ItineraryID, in.TenantID)
	if err != nil {
		return StitchResult{}, err
	}
	if a.Bucket == nil {
		return StitchResult{}, fmt.Errorf("videocompile: bucket not configured")
	}
	key := itinerary.FinalVideoKey(tenantID, itineraryID)
	exists, err := a.Bucket.Exists(ctx, gcp.BucketCategoryVideo, key)
	if err != nil {
		return StitchResult{}, fmt.Errorf("videocompile: check output: %w", err)
	}
	if exists {
		a.Log.Info("Final video already uploaded, skipping stitch", "itinerary_id", itineraryID)
		return StitchResult{VideoURL: a.Bucket.GetPublicURL(gcp.BucketCategoryVideo, key), Reused: true}, nil
	}

	activity.RecordHeartbeat(ctx, "stitching")
	start := time.Now()
	url, err := itinerary.StitchAndUpload(ctx, a.Media, a.Bucket, in.ClipURLs, tenantID, itineraryID)
	if err != nil {
		observability.Current().ObserveCompile("temporal", types.VideoStatusFailed, time.Since(start))
		return StitchResult{}, err
	}
	observability.Current().ObserveCompile("temporal", types.VideoStatusCompiled, time.Since(start))
	a.Log.Info("Final video uploaded", "itinerary_id", itineraryID, "clips", len(in.ClipURLs))
	return StitchResult{VideoURL: url}, nil
}

func (a *Activities) MarkCompiled(ctx context.Context, itineraryID, videoURL string) error {
	id, err := uuid.Parse(itineraryID)
	if err != nil {
		return fmt.Errorf("videocompile: invalid itinerary_id")
	}
	return a.Videos.MarkCompiled(ctx, id, videoURL)
}

func (a *Activities) MarkFailed(ctx context.Context, itineraryID, reason string) error {
	id, err := uuid.Parse(itineraryID)
	if err != nil {
		return fmt.Errorf("videocompile: invalid itinerary_id")
	}
	return a.Videos.MarkFailed(ctx, id, reason)
}

func parseIDs(itineraryID, tenantID string) (uuid.UUID, uuid.UUID, error) {
	it, err := uuid.Parse(itineraryID)
	if err != nil || it == uuid.Nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("videocompile: invalid itinerary_id")
	}
	tn, err := uuid.Parse(tenantID)
	if err != nil || tn == uuid.Nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("videocompile: invalid tenant_id")
	}
	return it, tn, nil
}
