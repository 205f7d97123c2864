package services

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/manike-backend/internal/data/repos"
	"github.com/yungbote/manike-backend/internal/data/repos/testutil"
	"github.com/yungbote/manike-backend/internal/modules/conversation"
	"github.com/yungbote/manike-backend/internal/pkg/ctxutil"
	"github.com/yungbote/manike-backend/internal/pkg/dbctx"
	"github.com/yungbote/manike-backend/internal/platform/gcp"
	"github.com/yungbote/manike-backend/internal/realtime"
)

// chatProvider answers the name prompt with a fixed name, extraction prompts with
// extract, and everything else with a short reply.
type chatProvider struct {
	mu      sync.Mutex
	extract string
	plan    string
}

func (p *chatProvider) Name() string { return "fake" }

func (p *chatProvider) Generate(ctx context.Context, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case strings.Contains(prompt, "Extract the person's name"):
		return `{"name": "Nimal"}`, nil
	case strings.Contains(prompt, "travel information extractor"):
		if p.extract == "" {
			return `{}`, nil
		}
		return p.extract, nil
	case p.plan != "" && strings.Contains(prompt, "image/video matching"):
		return p.plan, nil
	default:
		return "Lovely, tell me more!", nil
	}
}

type recordingBus struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (b *recordingBus) Publish(ctx context.Context, ev realtime.Event) error {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
	return nil
}

func (b *recordingBus) StartForwarder(ctx context.Context, onEvent func(ev realtime.Event)) error {
	return nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) published() []realtime.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]realtime.Event(nil), b.events...)
}

type fakeBucket struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeBucket) UploadFile(dbc dbctx.Context, category gcp.BucketCategory, key string, file io.Reader) (string, error) {
	return "https://cdn.test/" + key, nil
}

func (f *fakeBucket) DeleteFile(dbc dbctx.Context, category gcp.BucketCategory, key string) error {
	return nil
}

func (f *fakeBucket) DeleteByURL(ctx context.Context, publicURL string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, publicURL)
	f.mu.Unlock()
	return nil
}

func (f *fakeBucket) Exists(ctx context.Context, category gcp.BucketCategory, key string) (bool, error) {
	return false, nil
}

func (f *fakeBucket) GetPublicURL(category gcp.BucketCategory, key string) string {
	return "https://cdn.test/" + key
}

type sessionHarness struct {
	db       *gorm.DB
	provider *chatProvider
	store    *conversation.SessionStore
	sessions repos.ChatSessionRepo
	videos   repos.FinalVideoRepo
	bus      *recordingBus
	bucket   *fakeBucket
	svc      SessionService
}

func newSessionHarness(t *testing.T) *sessionHarness {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	h := &sessionHarness{
		db:       db,
		provider: &chatProvider{},
		sessions: repos.NewChatSessionRepo(db, log),
		videos:   repos.NewFinalVideoRepo(db, log),
		bus:      &recordingBus{},
		bucket:   &fakeBucket{},
	}
	durable := NewSessionLog(db, log, h.sessions, repos.NewChatMessageRepo(db, log))
	h.store = conversation.NewSessionStore(durable, func() *conversation.Orchestrator {
		return conversation.NewOrchestrator(
			conversation.NewExtractor(h.provider, log),
			conversation.NewResponder(h.provider, log),
			conversation.Options{},
			log,
		)
	}, log)
	h.svc = NewSessionService(db, log, h.store, h.sessions, h.videos, h.bucket, h.bus, "replica-a")
	return h
}

func asUser(tenantID, userID uuid.UUID) dbctx.Context {
	return dbctx.Context{Ctx: ctxutil.WithIdentity(context.Background(), &ctxutil.Identity{
		TenantID: tenantID,
		UserID:   userID,
	})}
}

func asUserWithEmail(tenantID, userID uuid.UUID, email string) dbctx.Context {
	return dbctx.Context{Ctx: ctxutil.WithIdentity(context.Background(), &ctxutil.Identity{
		TenantID: tenantID,
		UserID:   userID,
		Email:    email,
	})}
}
