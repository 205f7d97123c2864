package services

import (
	"errors"
	"net/http"

	"github.com/yungbote/manike-backend/internal/modules/conversation"
	"github.com/yungbote/manike-backend/internal/modules/itinerary"
	"github.com/yungbote/manike-backend/internal/modules/media"
	"github.com/yungbote/manike-backend/internal/platform/apierr"
)

var (
	errNotAuthenticated = apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("not authenticated"))
	errSessionNotFound  = apierr.NotFound("session_not_found", conversation.ErrSessionNotFound)
	errSessionReadOnly  = apierr.Forbidden("session_read_only", errors.New("shared sessions are read-only"))
)

// classify attaches an HTTP status and code to module errors. Unknown errors pass through
// and surface as 500.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, itinerary.ErrNotFound):
		return apierr.NotFound("itinerary_not_found", err)
	case errors.Is(err, itinerary.ErrInvalidInput):
		return apierr.BadRequest("invalid_request", err)
	case errors.Is(err, itinerary.ErrNoClips):
		return apierr.BadRequest("no_clips", errors.New(itinerary.NoClipsMessage))
	case errors.Is(err, itinerary.ErrEmptyPlan):
		return apierr.New(http.StatusUnprocessableEntity, "empty_plan", err)
	case errors.Is(err, itinerary.ErrPlanUnavailable):
		return apierr.Unavailable("plan_unavailable", err)
	case errors.Is(err, itinerary.ErrCompile):
		return apierr.New(http.StatusBadGateway, "compile_failed", err)
	case errors.Is(err, media.ErrAssetNotFound):
		return apierr.NotFound("asset_not_found", err)
	case errors.Is(err, media.ErrInvalidAsset):
		return apierr.BadRequest("invalid_asset", err)
	case errors.Is(err, conversation.ErrSessionNotFound):
		return errSessionNotFound
	}
	return err
}
