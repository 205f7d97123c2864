package services

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/manike-backend/internal/data/repos"
	"github.com/yungbote/manike-backend/internal/data/repos/testutil"
	types "github.com/yungbote/manike-backend/internal/domain/trip"
	"github.com/yungbote/manike-backend/internal/modules/itinerary"
	"github.com/yungbote/manike-backend/internal/modules/media"
)

const galleplan = `{
  "destination": "Galle",
  "duration_days": 1,
  "budget": null,
  "days": [
    {"day": 1, "activities": [
      {"title": "Galle Fort walk", "location": "Galle", "keywords": "galle,fort,heritage"},
      {"title": "Lighthouse sunset", "location": "Galle", "keywords": "galle,lighthouse,sunset"}
    ]}
  ]
}`

type clipMatcher struct{}

func (clipMatcher) MatchImage(ctx context.Context, tenantID uuid.UUID, query string, exclude map[string]struct{}) (*media.Match, error) {
	return nil, nil
}

func (clipMatcher) MatchClip(ctx context.Context, tenantID uuid.UUID, query string) (*media.Match, error) {
	return &media.Match{ID: uuid.New(), URL: "https://cdn.test/clip/" + uuid.NewString()}, nil
}

type syncCompiler struct{ calls int }

func (c *syncCompiler) Compile(ctx context.Context, clipURLs []string, itineraryID, tenantID uuid.UUID) (itinerary.CompileResult, error) {
	c.calls++
	return itinerary.CompileResult{VideoURL: fmt.Sprintf("https://cdn.test/%s", itinerary.FinalVideoKey(tenantID, itineraryID))}, nil
}

func newItineraryHarness(t *testing.T) (*sessionHarness, ItineraryService, *syncCompiler) {
	t.Helper()
	h := newSessionHarness(t)
	log := testutil.Logger(t)
	compiler := &syncCompiler{}
	lc := itinerary.NewLifecycle(itinerary.LifecycleDeps{
		DB:          h.db,
		Log:         log,
		Itineraries: repos.NewItineraryRepo(h.db, log),
		Videos:      h.videos,
		Sessions:    h.sessions,
		Planner:     itinerary.NewPlanner(h.provider, log),
		Matcher:     clipMatcher{},
		Compiler:    compiler,
	})
	return h, NewItineraryService(log, lc, h.store, h.sessions), compiler
}

func TestItineraryFromSessionThroughCompile(t *testing.T) {
	h, svc, compiler := newItineraryHarness(t)
	tenant, user := uuid.New(), uuid.New()
	dbc := asUser(tenant, user)

	ns, err := h.svc.Create(dbc)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = svc.GenerateFromSession(dbc, ns.SessionID)
	if status, code := statusOf(err); status != http.StatusBadRequest || code != "empty_conversation" {
		t.Fatalf("greeting only: want=400 empty_conversation got=%d %s", status, code)
	}

	h.provider.extract = `{"destination": "Galle"}`
	reply, err := h.svc.Send(dbc, ns.SessionID, "Galle for a day please")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !reply.ChangedSinceGeneration {
		t.Fatalf("reply changed_since_generation: want=true got=false")
	}
	h.provider.plan = galleplan

	view, err := svc.GenerateFromSession(dbc, ns.SessionID)
	if err != nil {
		t.Fatalf("GenerateFromSession: %v", err)
	}
	if view.Destination != "Galle" || len(view.Activities) != 2 {
		t.Fatalf("itinerary: want Galle with 2 activities got=%s %d", view.Destination, len(view.Activities))
	}
	if view.VideoStatus != itinerary.VideoNotStarted {
		t.Fatalf("video status: want=%s got=%s", itinerary.VideoNotStarted, view.VideoStatus)
	}
	orch, ok := h.store.Get(ns.SessionID)
	if !ok || orch.Dirty() {
		t.Fatalf("dirty after generate: cached=%v", ok)
	}
	hist, err := h.svc.History(dbc, ns.SessionID)
	if err != nil || hist.ChangedSinceGeneration {
		t.Fatalf("history changed_since_generation after generate: want=false got=%+v err=%v", hist, err)
	}
	row, err := h.sessions.GetByID(dbc, ns.SessionID)
	if err != nil || row == nil || row.ItineraryID == nil || *row.ItineraryID != view.ID {
		t.Fatalf("session link: row=%+v err=%v", row, err)
	}

	out, err := svc.CompileVideo(dbc, view.ID)
	if err != nil {
		t.Fatalf("CompileVideo: %v", err)
	}
	if out.ClipsUsed != 2 || out.FinalVideo.Status != types.VideoStatusCompiled {
		t.Fatalf("compile: want 2 clips compiled got=%d %s", out.ClipsUsed, out.FinalVideo.Status)
	}
	again, err := svc.CompileVideo(dbc, view.ID)
	if err != nil || again.FinalVideo.ID != out.FinalVideo.ID || compiler.calls != 1 {
		t.Fatalf("recompile: want same row and one compile got=%v calls=%d err=%v", again, compiler.calls, err)
	}

	st, err := svc.VideoStatus(dbc, view.ID)
	if err != nil || st.Status != itinerary.VideoCompiled || st.VideoURL == "" {
		t.Fatalf("VideoStatus: got=%+v err=%v", st, err)
	}
	got, err := svc.Get(dbc, view.ID)
	if err != nil || got.FinalVideoURL != st.VideoURL {
		t.Fatalf("Get: want url=%s got=%+v err=%v", st.VideoURL, got, err)
	}

	h.provider.extract = `{"destination": "Galle, Ella"}`
	reply, err = h.svc.Send(dbc, ns.SessionID, "Add Ella as well")
	if err != nil || !reply.ChangedSinceGeneration {
		t.Fatalf("change after generate: want changed_since_generation=true got=%+v err=%v", reply, err)
	}

	_, err = svc.Get(asUser(uuid.New(), user), view.ID)
	if status, code := statusOf(err); status != http.StatusNotFound || code != "itinerary_not_found" {
		t.Fatalf("other tenant: want=404 itinerary_not_found got=%d %s", status, code)
	}
}

func TestItineraryLegacy(t *testing.T) {
	_, svc, _ := newItineraryHarness(t)
	dbc := asUser(uuid.New(), uuid.New())

	cases := []struct {
		name   string
		req    LegacyRequest
		status int
		code   string
	}{
		{"ok", LegacyRequest{Prompt: "beaches and tea", Destination: "Sri Lanka", Days: 2}, 0, ""},
		{"missing prompt", LegacyRequest{Destination: "Sri Lanka", Days: 2}, http.StatusBadRequest, "invalid_request"},
		{"too many days", LegacyRequest{Prompt: "long", Destination: "Sri Lanka", Days: 61}, http.StatusBadRequest, "invalid_request"},
	}
	for _, tc := range cases {
		view, err := svc.GenerateLegacy(dbc, tc.req)
		if tc.status == 0 {
			if err != nil || view == nil || view.Days != tc.req.Days {
				t.Fatalf("%s: view=%+v err=%v", tc.name, view, err)
			}
			continue
		}
		if status, code := statusOf(err); status != tc.status || code != tc.code {
			t.Fatalf("%s: want=%d %s got=%d %s", tc.name, tc.status, tc.code, status, code)
		}
	}

	list, err := svc.List(dbc, 10)
	if err != nil || len(list) != 1 {
		t.Fatalf("List: want=1 got=%d err=%v", len(list), err)
	}
}

func TestItineraryEmailComesFromIdentity(t *testing.T) {
	cases := []struct {
		name  string
		email string
		want  string
	}{
		{"identity email wins", "  ana@example.com ", "ana@example.com"},
		{"falls back to conversation", "", "other@example.com"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, svc, _ := newItineraryHarness(t)
			dbc := asUserWithEmail(uuid.New(), uuid.New(), tc.email)
			ns, err := h.svc.Create(dbc)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			h.provider.extract = `{"destination": "Galle", "email": "Mail me at Other@Example.com"}`
			if _, err := h.svc.Send(dbc, ns.SessionID, "Galle for a day, mail me at Other@Example.com"); err != nil {
				t.Fatalf("Send: %v", err)
			}
			h.provider.plan = galleplan
			view, err := svc.GenerateFromSession(dbc, ns.SessionID)
			if err != nil {
				t.Fatalf("GenerateFromSession: %v", err)
			}
			if view.UserEmail != tc.want {
				t.Fatalf("user email: want=%q got=%q", tc.want, view.UserEmail)
			}
		})
	}
}

func TestItineraryPeerCannotGenerate(t *testing.T) {
	h, svc, _ := newItineraryHarness(t)
	tenant := uuid.New()
	owner := asUser(tenant, uuid.New())
	ns, err := h.svc.Create(owner)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := h.svc.SetShared(owner, ns.SessionID, true); err != nil {
		t.Fatalf("SetShared: %v", err)
	}
	_, err = svc.GenerateFromSession(asUser(tenant, uuid.New()), ns.SessionID)
	if status, code := statusOf(err); status != http.StatusForbidden || code != "session_read_only" {
		t.Fatalf("peer generate: want=403 session_read_only got=%d %s", status, code)
	}
}
