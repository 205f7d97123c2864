package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/manike-backend/internal/data/repos"
	types "github.com/yungbote/manike-backend/internal/domain/trip"
	"github.com/yungbote/manike-backend/internal/modules/conversation"
	"github.com/yungbote/manike-backend/internal/observability"
	"github.com/yungbote/manike-backend/internal/pkg/ctxutil"
	"github.com/yungbote/manike-backend/internal/pkg/dbctx"
	"github.com/yungbote/manike-backend/internal/platform/apierr"
	"github.com/yungbote/manike-backend/internal/platform/gcp"
	"github.com/yungbote/manike-backend/internal/platform/logger"
	"github.com/yungbote/manike-backend/internal/realtime"
	"github.com/yungbote/manike-backend/internal/realtime/bus"
)

type NewSession struct {
	SessionID uuid.UUID `json:"session_id"`
	Greeting  string    `json:"greeting"`
}

type ChatReply struct {
	Response        string             `json:"response"`
	Requirements    map[string]*string `json:"requirements"`
	IsComplete      bool               `json:"is_complete"`
	ReadyToGenerate bool               `json:"ready_to_generate"`
	// ChangedSinceGeneration is true when requirements moved after the last itinerary.
	ChangedSinceGeneration bool                   `json:"changed_since_generation"`
	Changes                []string               `json:"changes,omitempty"`
	Messages               []conversation.Message `json:"messages"`
}

type SessionHistory struct {
	Session                *types.ChatSession     `json:"session"`
	Messages               []conversation.Message `json:"messages"`
	Requirements           map[string]*string     `json:"requirements"`
	IsComplete             bool                   `json:"is_complete"`
	ReadyToGenerate        bool                   `json:"ready_to_generate"`
	ChangedSinceGeneration bool                   `json:"changed_since_generation"`
	ReadOnly               bool                   `json:"read_only"`
}

type SessionService interface {
	Create(dbc dbctx.Context) (*NewSession, error)
	// Send runs one conversation turn. Only the owner may send.
	Send(dbc dbctx.Context, sessionID uuid.UUID, message string) (*ChatReply, error)
	// History is readable by the owner and, for shared sessions, by anyone in the tenant.
	History(dbc dbctx.Context, sessionID uuid.UUID) (*SessionHistory, error)
	ListOwn(dbc dbctx.Context, limit int) ([]*types.ChatSession, error)
	ListShared(dbc dbctx.Context, limit int) ([]*types.ChatSession, error)
	SetShared(dbc dbctx.Context, sessionID uuid.UUID, shared bool) (*types.ChatSession, error)
	// Delete soft-deletes the session and removes any compiled video of its itinerary.
	Delete(dbc dbctx.Context, sessionID uuid.UUID) error
	// HandleEvent evicts sessions deleted on other replicas.
	HandleEvent(ev realtime.Event)
}

type sessionService struct {
	db     *gorm.DB
	log    *logger.Logger
	store  *conversation.SessionStore
	events bus.Bus
	bucket gcp.BucketService
	origin string

	sessions repos.ChatSessionRepo
	videos   repos.FinalVideoRepo
}

func NewSessionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	store *conversation.SessionStore,
	sessionRepo repos.ChatSessionRepo,
	videoRepo repos.FinalVideoRepo,
	bucket gcp.BucketService,
	events bus.Bus,
	origin string,
) SessionService {
	return &sessionService{
		db:       db,
		log:      baseLog.With("service", "SessionService"),
		store:    store,
		events:   events,
		bucket:   bucket,
		origin:   origin,
		sessions: sessionRepo,
		videos:   videoRepo,
	}
}

func (s *sessionService) Create(dbc dbctx.Context) (*NewSession, error) {
	id := ctxutil.GetIdentity(dbc.Ctx)
	if id == nil || id.UserID == uuid.Nil || id.TenantID == uuid.Nil {
		return nil, errNotAuthenticated
	}
	sid, greeting, err := s.store.Create(dbc.Ctx, conversation.Owner{TenantID: id.TenantID, UserID: id.UserID})
	if err != nil {
		return nil, err
	}
	return &NewSession{SessionID: sid, Greeting: greeting}, nil
}

func (s *sessionService) Send(dbc dbctx.Context, sessionID uuid.UUID, message string) (*ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apierr.BadRequest("empty_message", fmt.Errorf("message is required"))
	}
	if _, err := s.authorize(dbc, sessionID, true); err != nil {
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
	res := orch.Turn(dbc.Ctx, message)
	if err := s.store.PersistExchange(dbc.Ctx, sessionID, message, res.Reply, orch); err != nil {
		// The cached orchestrator is ahead of the durable log now; drop it so the next turn rebuilds.
		s.store.Evict(sessionID)
		return nil, fmt.Errorf("persist exchange: %w", err)
	}
	observability.Current().IncChatTurn(turnOutcome(res))

	return &ChatReply{
		Response:               res.Reply,
		Requirements:           orch.Requirements(),
		IsComplete:             orch.IsComplete(),
		ReadyToGenerate:        orch.IsReadyToGenerate(),
		ChangedSinceGeneration: orch.Dirty(),
		Changes:                res.Changes,
		Messages:               orch.History(),
	}, nil
}

func (s *sessionService) History(dbc dbctx.Context, sessionID uuid.UUID) (*SessionHistory, error) {
	row, err := s.authorize(dbc, sessionID, false)
	if err != nil {
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
	return &SessionHistory{
		Session:                row,
		Messages:               orch.History(),
		Requirements:           orch.Requirements(),
		IsComplete:             orch.IsComplete(),
		ReadyToGenerate:        orch.IsReadyToGenerate(),
		ChangedSinceGeneration: orch.Dirty(),
		ReadOnly:               row.UserID != ctxutil.GetIdentity(dbc.Ctx).UserID,
	}, nil
}

func (s *sessionService) ListOwn(dbc dbctx.Context, limit int) ([]*types.ChatSession, error) {
	id := ctxutil.GetIdentity(dbc.Ctx)
	if id == nil || id.UserID == uuid.Nil {
		return nil, errNotAuthenticated
	}
	return s.sessions.ListByUser(dbc, id.TenantID, id.UserID, limit)
}

func (s *sessionService) ListShared(dbc dbctx.Context, limit int) ([]*types.ChatSession, error) {
	id := ctxutil.GetIdentity(dbc.Ctx)
	if id == nil || id.TenantID == uuid.Nil {
		return nil, errNotAuthenticated
	}
	return s.sessions.ListShared(dbc, id.TenantID, limit)
}

func (s *sessionService) SetShared(dbc dbctx.Context, sessionID uuid.UUID, shared bool) (*types.ChatSession, error) {
	row, err := s.authorize(dbc, sessionID, true)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateFields(dbc, sessionID, map[string]interface{}{"is_shared": shared}); err != nil {
		return nil, err
	}
	row.IsShared = shared
	s.log.Info("Session sharing changed", "session_id", sessionID, "shared", shared)
	return row, nil
}

func (s *sessionService) Delete(dbc dbctx.Context, sessionID uuid.UUID) error {
	row, err := s.authorize(dbc, sessionID, true)
	if err != nil {
		return err
	}

	unlock := s.store.Lock(sessionID)
	defer unlock()

	var videoURL string
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		if row.ItineraryID != nil {
			fv, err := s.videos.GetByItinerary(txc, *row.ItineraryID)
			if err != nil {
				return err
			}
			if fv != nil {
				videoURL = fv.VideoURL
				if _, err := s.videos.DeleteByItinerary(txc, *row.ItineraryID); err != nil {
					return err
				}
			}
		}
		return s.sessions.SoftDelete(txc, sessionID)
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if s.store.Evict(sessionID) {
		observability.Current().IncSessionEviction()
	}
	if videoURL != "" && s.bucket != nil {
		if err := s.bucket.DeleteByURL(dbc.Ctx, videoURL); err != nil {
			s.log.Warn("Final video blob delete failed", "session_id", sessionID, "error", err)
		}
	}
	if s.events != nil {
		ev := realtime.NewEvent(realtime.EventSessionEvicted, row.TenantID)
		ev.SessionID = sessionID
		ev.Origin = s.origin
		if err := s.events.Publish(dbc.Ctx, ev); err != nil {
			s.log.Warn("Session eviction publish failed", "session_id", sessionID, "error", err)
		}
	}
	s.log.Info("Session deleted", "session_id", sessionID, "had_video", videoURL != "")
	return nil
}

func (s *sessionService) HandleEvent(ev realtime.Event) {
	if ev.Type != realtime.EventSessionEvicted || ev.Origin == s.origin || ev.SessionID == uuid.Nil {
		return
	}
	if s.store.Evict(ev.SessionID) {
		observability.Current().IncSessionEviction()
	}
}

func (s *sessionService) authorize(dbc dbctx.Context, sessionID uuid.UUID, write bool) (*types.ChatSession, error) {
	return authorizeSession(dbc, s.sessions, sessionID, write)
}

// authorizeSession loads the session and checks tenant scope. Sessions of another tenant, or
// private sessions of another user, are reported as missing. write requires ownership.
func authorizeSession(dbc dbctx.Context, sessions repos.ChatSessionRepo, sessionID uuid.UUID, write bool) (*types.ChatSession, error) {
	id := ctxutil.GetIdentity(dbc.Ctx)
	if id == nil || id.UserID == uuid.Nil || id.TenantID == uuid.Nil {
		return nil, errNotAuthenticated
	}
	if sessionID == uuid.Nil {
		return nil, errSessionNotFound
	}
	row, err := sessions.GetByID(dbctx.Context{Ctx: dbc.Ctx}, sessionID)
	if err != nil {
		return nil, err
	}
	if row == nil || row.TenantID != id.TenantID {
		return nil, errSessionNotFound
	}
	if row.UserID == id.UserID {
		return row, nil
	}
	if !row.IsShared {
		return nil, errSessionNotFound
	}
	if write {
		return nil, errSessionReadOnly
	}
	return row, nil
}

func turnOutcome(res conversation.TurnResult) string {
	switch {
	case res.ServiceUnavailable:
		return "unavailable"
	case res.Transient:
		return "degraded"
	default:
		return "ok"
	}
}
