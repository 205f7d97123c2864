package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/manike-backend/internal/data/repos"
	types "github.com/yungbote/manike-backend/internal/domain/trip"
	"github.com/yungbote/manike-backend/internal/modules/conversation"
	"github.com/yungbote/manike-backend/internal/modules/itinerary"
	"github.com/yungbote/manike-backend/internal/pkg/ctxutil"
	"github.com/yungbote/manike-backend/internal/pkg/dbctx"
	"github.com/yungbote/manike-backend/internal/platform/apierr"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

type ItineraryView struct {
	*types.Itinerary
	FinalVideoURL string `json:"final_video_url,omitempty"`
	VideoStatus   string `json:"video_status,omitempty"`
}

type LegacyRequest struct {
	Prompt      string `json:"prompt"`
	Destination string `json:"destination"`
	Days        int    `json:"days"`
}

type CompileOutcome struct {
	FinalVideo *types.FinalVideo `json:"final_video"`
	ClipsUsed  int               `json:"clips_used"`
	Message    string            `json:"message"`
}

type ItineraryService interface {
	// GenerateFromSession plans from the live conversation of a session the caller owns.
	GenerateFromSession(dbc dbctx.Context, sessionID uuid.UUID) (*ItineraryView, error)
	GenerateLegacy(dbc dbctx.Context, req LegacyRequest) (*ItineraryView, error)
	List(dbc dbctx.Context, limit int) ([]*ItineraryView, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*ItineraryView, error)
	CompileVideo(dbc dbctx.Context, id uuid.UUID) (*CompileOutcome, error)
	VideoStatus(dbc dbctx.Context, id uuid.UUID) (itinerary.VideoStatus, error)
}

type itineraryService struct {
	log       *logger.Logger
	lifecycle *itinerary.Lifecycle
	store     *conversation.SessionStore
	sessions  repos.ChatSessionRepo
}

func NewItineraryService(baseLog *logger.Logger, lifecycle *itinerary.Lifecycle, store *conversation.SessionStore, sessionRepo repos.ChatSessionRepo) ItineraryService {
	return &itineraryService{
		log:       baseLog.With("service", "ItineraryService"),
		lifecycle: lifecycle,
		store:     store,
		sessions:  sessionRepo,
	}
}

func (s *itineraryService) GenerateFromSession(dbc dbctx.Context, sessionID uuid.UUID) (*ItineraryView, error) {
	id := ctxutil.GetIdentity(dbc.Ctx)
	if id == nil || id.TenantID == uuid.Nil {
		return nil, errNotAuthenticated
	}
	if _, err := authorizeSession(dbc, s.sessions, sessionID, true); err != nil {
		return nil, err
	}

	unlock := s.store.Lock(sessionID)
	defer unlock()

	orch, err := s.store.GetOrRebuild(dbc.Ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if orch == nil {
		return nil, errSessionNotFound
	}
	// The greeting alone is not a conversation.
	if len(orch.History()) < 2 {
		return nil, apierr.BadRequest("empty_conversation", fmt.Errorf("send at least one message before generating"))
	}

	email := strings.TrimSpace(id.Email)
	if email == "" {
		if v := orch.Requirements()[conversation.FieldEmail]; v != nil {
			email = *v
		}
	}

	it, err := s.lifecycle.GenerateFromSession(dbc.Ctx, itinerary.SessionInput{
		TenantID:    id.TenantID,
		UserID:      id.UserID,
		SessionID:   sessionID,
		UserEmail:   email,
		Summary:     orch.Summary(),
		Destination: orch.Destination(),
	})
	if err != nil {
		return nil, classify(err)
	}
	orch.MarkGenerated()
	if err := s.store.SaveSnapshot(dbc.Ctx, sessionID, orch); err != nil {
		s.log.Warn("Snapshot save after generation failed", "session_id", sessionID, "error", err)
	}
	return &ItineraryView{Itinerary: it, VideoStatus: itinerary.VideoNotStarted}, nil
}

func (s *itineraryService) GenerateLegacy(dbc dbctx.Context, req LegacyRequest) (*ItineraryView, error) {
	id := ctxutil.GetIdentity(dbc.Ctx)
	if id == nil || id.TenantID == uuid.Nil {
		return nil, errNotAuthenticated
	}
	it, err := s.lifecycle.GenerateLegacy(dbc.Ctx, itinerary.LegacyInput{
		TenantID:    id.TenantID,
		UserID:      id.UserID,
		Prompt:      req.Prompt,
		Destination: req.Destination,
		Days:        req.Days,
	})
	if err != nil {
		return nil, classify(err)
	}
	return &ItineraryView{Itinerary: it, VideoStatus: itinerary.VideoNotStarted}, nil
}

func (s *itineraryService) List(dbc dbctx.Context, limit int) ([]*ItineraryView, error) {
	id := ctxutil.GetIdentity(dbc.Ctx)
	if id == nil || id.TenantID == uuid.Nil {
		return nil, errNotAuthenticated
	}
	rows, err := s.lifecycle.List(dbc.Ctx, id.TenantID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*ItineraryView, 0, len(rows))
	for _, row := range rows {
		out = append(out, &ItineraryView{Itinerary: row})
	}
	return out, nil
}

func (s *itineraryService) Get(dbc dbctx.Context, itineraryID uuid.UUID) (*ItineraryView, error) {
	id := ctxutil.GetIdentity(dbc.Ctx)
	if id == nil || id.TenantID == uuid.Nil {
		return nil, errNotAuthenticated
	}
	it, fv, err := s.lifecycle.Get(dbc.Ctx, id.TenantID, itineraryID)
	if err != nil {
		return nil, classify(err)
	}
	st := itinerary.ProjectStatus(fv)
	return &ItineraryView{Itinerary: it, FinalVideoURL: st.VideoURL, VideoStatus: st.Status}, nil
}

func (s *itineraryService) CompileVideo(dbc dbctx.Context, itineraryID uuid.UUID) (*CompileOutcome, error) {
	id := ctxutil.GetIdentity(dbc.Ctx)
	if id == nil || id.TenantID == uuid.Nil {
		return nil, errNotAuthenticated
	}
	fv, err := s.lifecycle.CompileVideo(dbc.Ctx, id.TenantID, itineraryID)
	if err != nil {
		return nil, classify(err)
	}
	msg := "Final cinematic video compiled successfully"
	if fv.Status != types.VideoStatusCompiled {
		msg = "Final cinematic video is being compiled"
	}
	return &CompileOutcome{FinalVideo: fv, ClipsUsed: fv.ClipCount, Message: msg}, nil
}

func (s *itineraryService) VideoStatus(dbc dbctx.Context, itineraryID uuid.UUID) (itinerary.VideoStatus, error) {
	id := ctxutil.GetIdentity(dbc.Ctx)
	if id == nil || id.TenantID == uuid.Nil {
		return itinerary.VideoStatus{}, errNotAuthenticated
	}
	st, err := s.lifecycle.Status(dbc.Ctx, id.TenantID, itineraryID)
	if err != nil {
		return itinerary.VideoStatus{}, classify(err)
	}
	return st, nil
}
