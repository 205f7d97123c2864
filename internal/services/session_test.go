package services

import (
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/manike-backend/internal/data/repos/testutil"
	types "github.com/yungbote/manike-backend/internal/domain/trip"
	"github.com/yungbote/manike-backend/internal/modules/conversation"
	"github.com/yungbote/manike-backend/internal/platform/apierr"
	"github.com/yungbote/manike-backend/internal/realtime"
)

func statusOf(err error) (int, string) {
	ae := apierr.From(err)
	if ae == nil {
		return 0, ""
	}
	return ae.Status, ae.Code
}

func TestSessionCreateAndSend(t *testing.T) {
	h := newSessionHarness(t)
	tenant, user := uuid.New(), uuid.New()
	dbc := asUser(tenant, user)

	ns, err := h.svc.Create(dbc)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ns.Greeting != conversation.Greeting {
		t.Fatalf("greeting: want=%q got=%q", conversation.Greeting, ns.Greeting)
	}

	h.provider.extract = `{"destination": "Galle"}`
	reply, err := h.svc.Send(dbc, ns.SessionID, "  We want to see Galle  ")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Response == "" {
		t.Fatalf("reply: want non-empty response")
	}
	if v := reply.Requirements["destination"]; v == nil || *v != "Galle" {
		t.Fatalf("destination: want=Galle got=%v", v)
	}
	if len(reply.Messages) != 3 {
		t.Fatalf("messages: want=3 got=%d", len(reply.Messages))
	}

	row, err := h.sessions.GetByID(dbc, ns.SessionID)
	if err != nil || row == nil {
		t.Fatalf("GetByID: row=%v err=%v", row, err)
	}
	if row.Title != "Galle" {
		t.Fatalf("title: want=Galle got=%q", row.Title)
	}

	// A fresh store rebuilds the same transcript from the durable log.
	h.store.Evict(ns.SessionID)
	hist, err := h.svc.History(dbc, ns.SessionID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist.Messages) != 3 || hist.Messages[1].Content != "We want to see Galle" {
		t.Fatalf("rebuilt history: got=%+v", hist.Messages)
	}
	if hist.ReadOnly {
		t.Fatalf("owner history: want read_only=false")
	}
}

func TestSessionSendRejectsEmptyMessage(t *testing.T) {
	h := newSessionHarness(t)
	dbc := asUser(uuid.New(), uuid.New())
	ns, err := h.svc.Create(dbc)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = h.svc.Send(dbc, ns.SessionID, "   ")
	if status, code := statusOf(err); status != http.StatusBadRequest || code != "empty_message" {
		t.Fatalf("empty message: want=400 empty_message got=%d %s", status, code)
	}
}

func TestSessionAuthorization(t *testing.T) {
	h := newSessionHarness(t)
	tenant, owner := uuid.New(), uuid.New()
	ownerCtx := asUser(tenant, owner)
	ns, err := h.svc.Create(ownerCtx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	peer := asUser(tenant, uuid.New())
	outsider := asUser(uuid.New(), owner)

	check := func(name string, err error, wantStatus int, wantCode string) {
		t.Helper()
		if wantStatus == 0 {
			if err != nil {
				t.Fatalf("%s: want=nil got=%v", name, err)
			}
			return
		}
		if status, code := statusOf(err); status != wantStatus || code != wantCode {
			t.Fatalf("%s: want=%d %s got=%d %s (%v)", name, wantStatus, wantCode, status, code, err)
		}
	}

	_, err = h.svc.History(peer, ns.SessionID)
	check("peer reads private", err, http.StatusNotFound, "session_not_found")
	_, err = h.svc.History(outsider, ns.SessionID)
	check("other tenant reads", err, http.StatusNotFound, "session_not_found")
	_, err = h.svc.SetShared(peer, ns.SessionID, true)
	check("peer shares", err, http.StatusNotFound, "session_not_found")

	if _, err := h.svc.SetShared(ownerCtx, ns.SessionID, true); err != nil {
		t.Fatalf("SetShared: %v", err)
	}

	hist, err := h.svc.History(peer, ns.SessionID)
	check("peer reads shared", err, 0, "")
	if !hist.ReadOnly {
		t.Fatalf("peer history: want read_only=true")
	}
	_, err = h.svc.Send(peer, ns.SessionID, "hello")
	check("peer writes shared", err, http.StatusForbidden, "session_read_only")
	err = h.svc.Delete(peer, ns.SessionID)
	check("peer deletes shared", err, http.StatusForbidden, "session_read_only")
	_, err = h.svc.History(outsider, ns.SessionID)
	check("other tenant reads shared", err, http.StatusNotFound, "session_not_found")

	shared, err := h.svc.ListShared(peer, 10)
	if err != nil || len(shared) != 1 || shared[0].ID != ns.SessionID {
		t.Fatalf("ListShared: want=[%s] got=%v err=%v", ns.SessionID, shared, err)
	}
	own, err := h.svc.ListOwn(peer, 10)
	if err != nil || len(own) != 0 {
		t.Fatalf("ListOwn peer: want=[] got=%v err=%v", own, err)
	}

	_, err = h.svc.Create(asUser(uuid.Nil, uuid.Nil))
	check("anonymous create", err, http.StatusUnauthorized, "unauthorized")
}

func TestSessionDeleteRemovesVideo(t *testing.T) {
	h := newSessionHarness(t)
	tenant, user := uuid.New(), uuid.New()
	dbc := asUser(tenant, user)
	ns, err := h.svc.Create(dbc)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	it := testutil.SeedItinerary(t, dbc.Ctx, h.db, tenant, "https://cdn.test/a.mp4")
	if err := h.sessions.UpdateFields(dbc, ns.SessionID, map[string]interface{}{"itinerary_id": it.ID}); err != nil {
		t.Fatalf("link itinerary: %v", err)
	}
	videoURL := "https://cdn.test/final.mp4"
	if _, err := h.videos.Create(dbc, &types.FinalVideo{
		ItineraryID: it.ID,
		TenantID:    tenant,
		Status:      types.VideoStatusCompiled,
		VideoURL:    videoURL,
		ClipCount:   1,
	}); err != nil {
		t.Fatalf("seed video: %v", err)
	}
	if _, err := h.svc.History(dbc, ns.SessionID); err != nil {
		t.Fatalf("History: %v", err)
	}
	if h.store.Len() != 1 {
		t.Fatalf("cached sessions: want=1 got=%d", h.store.Len())
	}

	if err := h.svc.Delete(dbc, ns.SessionID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if row, err := h.sessions.GetByID(dbc, ns.SessionID); err != nil || row != nil {
		t.Fatalf("session after delete: want=nil got=%v err=%v", row, err)
	}
	if fv, err := h.videos.GetByItinerary(dbc, it.ID); err != nil || fv != nil {
		t.Fatalf("video after delete: want=nil got=%v err=%v", fv, err)
	}
	if h.store.Len() != 0 {
		t.Fatalf("cached sessions after delete: want=0 got=%d", h.store.Len())
	}
	if len(h.bucket.deleted) != 1 || h.bucket.deleted[0] != videoURL {
		t.Fatalf("blob delete: want=[%s] got=%v", videoURL, h.bucket.deleted)
	}
	evs := h.bus.published()
	if len(evs) != 1 || evs[0].Type != realtime.EventSessionEvicted || evs[0].SessionID != ns.SessionID || evs[0].Origin != "replica-a" {
		t.Fatalf("events: got=%+v", evs)
	}

	_, err = h.svc.History(dbc, ns.SessionID)
	if !errors.Is(err, conversation.ErrSessionNotFound) {
		t.Fatalf("history after delete: want=ErrSessionNotFound got=%v", err)
	}
}

func TestSessionHandleEvent(t *testing.T) {
	h := newSessionHarness(t)
	dbc := asUser(uuid.New(), uuid.New())
	ns, err := h.svc.Create(dbc)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	cases := []struct {
		name   string
		origin string
		typ    realtime.EventType
		want   int
	}{
		{"own echo ignored", "replica-a", realtime.EventSessionEvicted, 1},
		{"other event type ignored", "replica-b", realtime.EventVideoCompiled, 1},
		{"peer eviction applied", "replica-b", realtime.EventSessionEvicted, 0},
	}
	for _, tc := range cases {
		ev := realtime.NewEvent(tc.typ, uuid.New())
		ev.SessionID = ns.SessionID
		ev.Origin = tc.origin
		h.svc.HandleEvent(ev)
		if got := h.store.Len(); got != tc.want {
			t.Fatalf("%s: cached want=%d got=%d", tc.name, tc.want, got)
		}
	}
}
