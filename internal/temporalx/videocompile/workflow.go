package videocompile

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow stitches the clips once, then records the outcome on the FinalVideo row.
// Stitching is not retried: a bad clip fails the same way every time. The bookkeeping
// activities retry because the dispatching request may not have inserted the row yet.
func Workflow(ctx workflow.Context, in Input) (StitchResult, error) {
	if in.ItineraryID == "" || len(in.ClipURLs) == 0 {
		return StitchResult{}, temporal.NewNonRetryableApplicationError("missing itinerary or clips", "invalid_input", nil)
	}

	stitchCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	markCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    10,
		},
	})

	var out StitchResult
	if err := workflow.ExecuteActivity(stitchCtx, ActivityStitch, in).Get(ctx, &out); err != nil {
		workflow.GetLogger(ctx).Error("Stitch failed", "itinerary_id", in.ItineraryID, "error", err)
		if mErr := workflow.ExecuteActivity(markCtx, ActivityMarkFailed, in.ItineraryID, err.Error()).Get(ctx, nil); mErr != nil {
			return StitchResult{}, fmt.Errorf("stitch failed (%v) and marking failed did not persist: %w", err, mErr)
		}
		return StitchResult{}, err
	}

	if err := workflow.ExecuteActivity(markCtx, ActivityMarkCompiled, in.ItineraryID, out.VideoURL).Get(ctx, nil); err != nil {
		return out, err
	}
	return out, nil
}
