package itinerary

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/manike-backend/internal/data/repos"
	"github.com/yungbote/manike-backend/internal/data/repos/testutil"
	"github.com/yungbote/manike-backend/internal/modules/media"
	"github.com/yungbote/manike-backend/internal/realtime"
)

type fakeProvider struct {
	text string
	err  error
}

func (f fakeProvider) Name() string { return "fake" }

func (f fakeProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return f.text, f.err
}

// fakeMatcher ranks images in slice order and gives every query a clip unless noClips is set.
type fakeMatcher struct {
	images  []uuid.UUID
	noClips bool
	clipErr error
}

func (m *fakeMatcher) MatchImage(ctx context.Context, tenantID uuid.UUID, query string, exclude map[string]struct{}) (*media.Match, error) {
	for _, id := range m.images {
		if _, skip := exclude[id.String()]; !skip {
			return &media.Match{ID: id, URL: "https://cdn.test/img/" + id.String()}, nil
		}
	}
	if len(m.images) == 0 {
		return nil, nil
	}
	return &media.Match{ID: m.images[0], URL: "https://cdn.test/img/" + m.images[0].String()}, nil
}

func (m *fakeMatcher) MatchClip(ctx context.Context, tenantID uuid.UUID, query string) (*media.Match, error) {
	if m.clipErr != nil {
		return nil, m.clipErr
	}
	if m.noClips {
		return nil, nil
	}
	return &media.Match{ID: uuid.New(), URL: "https://cdn.test/clip/" + query}, nil
}

type fakeCompiler struct {
	calls atomic.Int32
	async bool
	err   error
	// gate, when set, blocks every call until it is closed.
	gate    chan struct{}
	arrived chan struct{}
}

func (c *fakeCompiler) Compile(ctx context.Context, clipURLs []string, itineraryID, tenantID uuid.UUID) (CompileResult, error) {
	c.calls.Add(1)
	if c.arrived != nil {
		c.arrived <- struct{}{}
	}
	if c.gate != nil {
		<-c.gate
	}
	if c.err != nil {
		return CompileResult{}, c.err
	}
	if c.async {
		return CompileResult{Async: true}, nil
	}
	return CompileResult{VideoURL: fmt.Sprintf("https://cdn.test/%s", FinalVideoKey(tenantID, itineraryID))}, nil
}

type recordedEvents struct {
	mu     sync.Mutex
	events []realtime.EventType
}

func (r *recordedEvents) Publish(ctx context.Context, ev realtime.Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev.Type)
	r.mu.Unlock()
	return nil
}

func (r *recordedEvents) types() []realtime.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]realtime.EventType(nil), r.events...)
}

type harness struct {
	db     *gorm.DB
	lc     *Lifecycle
	deps   LifecycleDeps
	events *recordedEvents
}

func newHarness(t *testing.T, matcher MediaMatcher, compiler VideoCompiler, planner *Planner) *harness {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	ev := &recordedEvents{}
	deps := LifecycleDeps{
		DB:          db,
		Log:         log,
		Itineraries: repos.NewItineraryRepo(db, log),
		Videos:      repos.NewFinalVideoRepo(db, log),
		Sessions:    repos.NewChatSessionRepo(db, log),
		Planner:     planner,
		Matcher:     matcher,
		Compiler:    compiler,
		Events:      ev,
	}
	return &harness{db: db, lc: NewLifecycle(deps), deps: deps, events: ev}
}
