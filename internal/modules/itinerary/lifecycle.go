package itinerary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/manike-backend/internal/data/repos"
	types "github.com/yungbote/manike-backend/internal/domain/trip"
	"github.com/yungbote/manike-backend/internal/observability"
	"github.com/yungbote/manike-backend/internal/pkg/dbctx"
	"github.com/yungbote/manike-backend/internal/platform/logger"
	"github.com/yungbote/manike-backend/internal/realtime"
)

var (
	ErrNotFound     = errors.New("itinerary not found")
	ErrInvalidInput = errors.New("invalid itinerary request")
	ErrNoClips      = errors.New("no cinematic clips tagged to itinerary")
	ErrCompile      = errors.New("video compile failed")
	// ErrVideoRowMissing is returned to the async worker when it finishes before the
	// dispatching request inserted the FinalVideo row. The worker retries.
	ErrVideoRowMissing = errors.New("final video row not written yet")
)

const maxLegacyDays = 60

// Video status values reported to clients.
const (
	VideoNotStarted = "not_started"
	VideoProcessing = types.VideoStatusProcessing
	VideoCompiled   = types.VideoStatusCompiled
	VideoFailed     = types.VideoStatusFailed
)

// NoClipsMessage is shown when ErrNoClips reaches a client.
const NoClipsMessage = "No cinematic clips are tagged to this itinerary. Upload clips and regenerate."

const retryGuidance = "Video compilation failed. Check that the tagged clips are valid videos and try compiling again."

type EventPublisher interface {
	Publish(ctx context.Context, ev realtime.Event) error
}

type LifecycleDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Itineraries repos.ItineraryRepo
	Videos      repos.FinalVideoRepo
	Sessions    repos.ChatSessionRepo

	Planner  *Planner
	Rules    *RuleGenerator
	Matcher  MediaMatcher
	Compiler VideoCompiler
	// Optional.
	Events EventPublisher

	MatchConcurrency int
}

type Lifecycle struct {
	deps LifecycleDeps
	log  *logger.Logger
}

func NewLifecycle(deps LifecycleDeps) *Lifecycle {
	if deps.Rules == nil {
		deps.Rules = NewRuleGenerator(DefaultCatalog())
	}
	return &Lifecycle{deps: deps, log: deps.Log.With("module", "ItineraryLifecycle")}
}

type SessionInput struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	SessionID uuid.UUID
	UserEmail string
	// Summary is the rendered conversation transcript.
	Summary string
	// Destination is used when the plan omits one.
	Destination string
}

// GenerateFromSession asks the planner for a rich plan, matches media and links the session.
// The caller clears the conversation's dirty flag once this returns without error.
func (l *Lifecycle) GenerateFromSession(ctx context.Context, in SessionInput) (*types.Itinerary, error) {
	if in.TenantID == uuid.Nil || strings.TrimSpace(in.Summary) == "" {
		return nil, fmt.Errorf("%w: missing tenant or conversation", ErrInvalidInput)
	}
	if l.deps.Planner == nil {
		return nil, ErrPlanUnavailable
	}
	plan, raw, err := l.deps.Planner.Plan(ctx, in.Summary, in.UserEmail)
	if err != nil {
		return nil, err
	}
	dest := strings.TrimSpace(plan.Destination)
	if dest == "" {
		dest = in.Destination
	}
	row := &types.Itinerary{
		TenantID:    in.TenantID,
		UserID:      in.UserID,
		Prompt:      in.Summary,
		Destination: dest,
		Days:        plan.dayCount(),
		Plan:        raw,
		UserEmail:   in.UserEmail,
		Activities:  l.assignMedia(ctx, in.TenantID, plan.Flatten()),
	}
	if in.SessionID != uuid.Nil {
		sid := in.SessionID
		row.SessionID = &sid
	}

	err = l.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := l.deps.Itineraries.Create(dbc, row); err != nil {
			return err
		}
		if row.SessionID != nil && l.deps.Sessions != nil {
			return l.deps.Sessions.UpdateFields(dbc, *row.SessionID, map[string]interface{}{"itinerary_id": row.ID})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save itinerary: %w", err)
	}
	l.log.Info("Itinerary generated from session", "itinerary_id", row.ID, "session_id", in.SessionID, "activities", len(row.Activities))
	observability.Current().IncItinerary("ai")
	l.publish(ctx, realtime.EventItineraryGenerated, row.TenantID, row.ID, map[string]any{"session_id": in.SessionID.String()})
	return row, nil
}

type LegacyInput struct {
	TenantID    uuid.UUID
	UserID      uuid.UUID
	Prompt      string
	Destination string
	Days        int
}

// GenerateLegacy builds an itinerary from the rule-based catalog. No model call is made.
func (l *Lifecycle) GenerateLegacy(ctx context.Context, in LegacyInput) (*types.Itinerary, error) {
	in.Prompt = strings.TrimSpace(in.Prompt)
	in.Destination = strings.TrimSpace(in.Destination)
	switch {
	case in.TenantID == uuid.Nil:
		return nil, fmt.Errorf("%w: missing tenant", ErrInvalidInput)
	case in.Prompt == "":
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidInput)
	case in.Destination == "":
		return nil, fmt.Errorf("%w: destination is required", ErrInvalidInput)
	case in.Days <= 0 || in.Days > maxLegacyDays:
		return nil, fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidInput, maxLegacyDays)
	}

	row := &types.Itinerary{
		TenantID:    in.TenantID,
		UserID:      in.UserID,
		Prompt:      in.Prompt,
		Destination: in.Destination,
		Days:        in.Days,
		Activities:  l.assignMedia(ctx, in.TenantID, l.deps.Rules.Generate(in.Prompt, in.Destination, in.Days)),
	}
	if _, err := l.deps.Itineraries.Create(dbctx.Context{Ctx: ctx}, row); err != nil {
		return nil, fmt.Errorf("save itinerary: %w", err)
	}
	l.log.Info("Itinerary generated", "itinerary_id", row.ID, "days", row.Days)
	observability.Current().IncItinerary("rules")
	l.publish(ctx, realtime.EventItineraryGenerated, row.TenantID, row.ID, nil)
	return row, nil
}

func (l *Lifecycle) Get(ctx context.Context, tenantID, id uuid.UUID) (*types.Itinerary, *types.FinalVideo, error) {
	it, err := l.deps.Itineraries.GetByID(dbctx.Context{Ctx: ctx}, tenantID, id)
	if err != nil {
		return nil, nil, err
	}
	if it == nil {
		return nil, nil, ErrNotFound
	}
	fv, err := l.deps.Videos.GetByItinerary(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, nil, err
	}
	return it, fv, nil
}

func (l *Lifecycle) List(ctx context.Context, tenantID uuid.UUID, limit int) ([]*types.Itinerary, error) {
	return l.deps.Itineraries.ListByTenant(dbctx.Context{Ctx: ctx}, tenantID, limit)
}

// CompileVideo is idempotent: a compiled video is returned as is, a stale processing or
// failed row is cleared and the compile runs again. Concurrent callers converge on one row.
func (l *Lifecycle) CompileVideo(ctx context.Context, tenantID, itineraryID uuid.UUID) (*types.FinalVideo, error) {
	dbc := dbctx.Context{Ctx: ctx}
	it, err := l.deps.Itineraries.GetByID(dbc, tenantID, itineraryID)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, ErrNotFound
	}

	existing, err := l.deps.Videos.GetByItinerary(dbc, itineraryID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == types.VideoStatusCompiled && existing.VideoURL != "" {
			return existing, nil
		}
		if _, err := l.deps.Videos.DeleteByItinerary(dbc, itineraryID); err != nil {
			return nil, fmt.Errorf("clear stale video: %w", err)
		}
		l.log.Info("Stale final video cleared", "itinerary_id", itineraryID, "status", existing.Status)
	}

	var clips []string
	for _, a := range it.Activities {
		if a != nil && strings.TrimSpace(a.ClipURL) != "" {
			clips = append(clips, a.ClipURL)
		}
	}
	if len(clips) == 0 {
		return nil, ErrNoClips
	}
	if l.deps.Compiler == nil {
		return nil, fmt.Errorf("%w: no video compiler configured", ErrCompile)
	}

	res, err := l.deps.Compiler.Compile(ctx, clips, itineraryID, tenantID)
	if err != nil {
		l.log.Error("Video compile failed", "itinerary_id", itineraryID, "error", err)
		l.publish(ctx, realtime.EventVideoFailed, tenantID, itineraryID, map[string]any{"error": err.Error()})
		return nil, fmt.Errorf("%w: %v", ErrCompile, err)
	}
	status := res.Status
	if status == "" {
		status = types.VideoStatusProcessing
		if !res.Async && res.VideoURL != "" {
			status = types.VideoStatusCompiled
		}
	}

	row := &types.FinalVideo{
		ItineraryID: itineraryID,
		TenantID:    tenantID,
		Status:      status,
		VideoURL:    res.VideoURL,
		ClipCount:   len(clips),
	}
	err = l.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := l.deps.Videos.Create(txc, row); err != nil {
			return err
		}
		if status == types.VideoStatusCompiled {
			_, err := l.deps.Itineraries.AdvanceStatus(txc, itineraryID, types.ItineraryStatusVideoCompiled)
			return err
		}
		return nil
	})
	if err != nil {
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("save final video: %w", err)
		}
		winner, gerr := l.deps.Videos.GetByItinerary(dbc, itineraryID)
		if gerr != nil {
			return nil, gerr
		}
		if winner == nil {
			return nil, fmt.Errorf("save final video: %w", err)
		}
		l.log.Info("Concurrent compile lost the insert, returning existing row", "itinerary_id", itineraryID)
		return winner, nil
	}

	ev := realtime.EventVideoProcessing
	if status == types.VideoStatusCompiled {
		ev = realtime.EventVideoCompiled
	}
	l.publish(ctx, ev, tenantID, itineraryID, map[string]any{"video_url": row.VideoURL})
	return row, nil
}

// VideoStatus is the client-facing projection of the FinalVideo row.
type VideoStatus struct {
	Status   string `json:"status"`
	VideoURL string `json:"video_url,omitempty"`
	Message  string `json:"message,omitempty"`
}

func (l *Lifecycle) Status(ctx context.Context, tenantID, itineraryID uuid.UUID) (VideoStatus, error) {
	_, fv, err := l.Get(ctx, tenantID, itineraryID)
	if err != nil {
		return VideoStatus{}, err
	}
	return ProjectStatus(fv), nil
}

func ProjectStatus(fv *types.FinalVideo) VideoStatus {
	switch {
	case fv == nil:
		return VideoStatus{Status: VideoNotStarted}
	case fv.Status == types.VideoStatusFailed:
		return VideoStatus{Status: VideoFailed, Message: retryGuidance}
	case fv.Status == types.VideoStatusCompiled && fv.VideoURL != "":
		return VideoStatus{Status: VideoCompiled, VideoURL: fv.VideoURL}
	default:
		return VideoStatus{Status: VideoProcessing}
	}
}

// MarkCompiled is called by the async worker once the video is uploaded.
func (l *Lifecycle) MarkCompiled(ctx context.Context, itineraryID uuid.UUID, videoURL string) error {
	var tenantID uuid.UUID
	err := l.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		fv, err := l.deps.Videos.GetByItinerary(dbc, itineraryID)
		if err != nil {
			return err
		}
		if fv == nil {
			return ErrVideoRowMissing
		}
		if err := l.deps.Videos.UpdateFields(dbc, fv.ID, map[string]interface{}{
			"status":    types.VideoStatusCompiled,
			"video_url": videoURL,
			"error":     "",
		}); err != nil {
			return err
		}
		tenantID = fv.TenantID
		_, err = l.deps.Itineraries.AdvanceStatus(dbc, itineraryID, types.ItineraryStatusVideoCompiled)
		return err
	})
	if err != nil {
		return err
	}
	l.publish(ctx, realtime.EventVideoCompiled, tenantID, itineraryID, map[string]any{"video_url": videoURL})
	return nil
}

// MarkFailed records a stitch failure so the next compile request retries from scratch.
func (l *Lifecycle) MarkFailed(ctx context.Context, itineraryID uuid.UUID, reason string) error {
	dbc := dbctx.Context{Ctx: ctx}
	fv, err := l.deps.Videos.GetByItinerary(dbc, itineraryID)
	if err != nil {
		return err
	}
	if fv == nil {
		return ErrVideoRowMissing
	}
	if err := l.deps.Videos.UpdateFields(dbc, fv.ID, map[string]interface{}{
		"status": types.VideoStatusFailed,
		"error":  reason,
	}); err != nil {
		return err
	}
	l.publish(ctx, realtime.EventVideoFailed, fv.TenantID, itineraryID, map[string]any{"error": reason})
	return nil
}

func (l *Lifecycle) publish(ctx context.Context, t realtime.EventType, tenantID, itineraryID uuid.UUID, data map[string]any) {
	if l.deps.Events == nil {
		return
	}
	ev := realtime.NewEvent(t, tenantID)
	ev.ItineraryID = itineraryID
	ev.Data = data
	if err := l.deps.Events.Publish(ctx, ev); err != nil {
		l.log.Warn("Event publish failed", "type", t, "error", err)
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
