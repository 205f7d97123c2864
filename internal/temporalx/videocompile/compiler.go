package videocompile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"

	types "github.com/yungbote/manike-backend/internal/domain/trip"
	"github.com/yungbote/manike-backend/internal/modules/itinerary"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

// Compiler dispatches compiles to the worker and returns immediately.
type Compiler struct {
	tc        temporalsdkclient.Client
	taskQueue string
	log       *logger.Logger
}

func NewCompiler(tc temporalsdkclient.Client, taskQueue string, log *logger.Logger) (*Compiler, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	return &Compiler{tc: tc, taskQueue: taskQueue, log: log.With("service", "TemporalVideoCompiler")}, nil
}

func (c *Compiler) Compile(ctx context.Context, clipURLs []string, itineraryID, tenantID uuid.UUID) (itinerary.CompileResult, error) {
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                       WorkflowID(itineraryID.String()),
		TaskQueue:                c.taskQueue,
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
	}
	run, err := c.tc.ExecuteWorkflow(ctx, opts, WorkflowName, Input{
		ItineraryID: itineraryID.String(),
		TenantID:    tenantID.String(),
		ClipURLs:    clipURLs,
	})
	if err != nil {
		return itinerary.CompileResult{}, fmt.Errorf("start compile workflow: %w", err)
	}
	c.log.Info("Compile dispatched", "itinerary_id", itineraryID, "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return itinerary.CompileResult{Status: types.VideoStatusProcessing, Async: true}, nil
}
