package trip

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/manike-backend/internal/data/repos/testutil"
	types "github.com/yungbote/manike-backend/internal/domain/trip"
	"github.com/yungbote/manike-backend/internal/pkg/dbctx"
)

func TestChatSessionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewChatSessionRepo(db, testutil.Logger(t))
	tenantID, userID := uuid.New(), uuid.New()

	created, err := repo.Create(dbc, []*types.ChatSession{
		{TenantID: tenantID, UserID: userID, Requirements: datatypes.JSON(`{"destination":null}`)},
		{TenantID: tenantID, UserID: uuid.New(), IsShared: true},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 2 || created[0].ID == uuid.Nil {
		t.Fatalf("Create: unexpected rows %+v", created)
	}
	if created[0].Title != types.DefaultSessionTitle {
		t.Fatalf("Create title: want=%q got=%q", types.DefaultSessionTitle, created[0].Title)
	}

	got, err := repo.GetByID(dbc, created[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.UserID != userID {
		t.Fatalf("GetByID: unexpected %+v", got)
	}

	own, err := repo.ListByUser(dbc, tenantID, userID, 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(own) != 1 {
		t.Fatalf("ListByUser: want=1 got=%d", len(own))
	}

	shared, err := repo.ListShared(dbc, tenantID, 10)
	if err != nil {
		t.Fatalf("ListShared: %v", err)
	}
	if len(shared) != 1 || shared[0].ID != created[1].ID {
		t.Fatalf("ListShared: unexpected %+v", shared)
	}
	otherTenant, err := repo.ListShared(dbc, uuid.New(), 10)
	if err != nil {
		t.Fatalf("ListShared other tenant: %v", err)
	}
	if len(otherTenant) != 0 {
		t.Fatalf("ListShared other tenant: want=0 got=%d", len(otherTenant))
	}

	if err := repo.UpdateFields(dbc, created[0].ID, map[string]interface{}{"title": "Galle"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, _ = repo.GetByID(dbc, created[0].ID)
	if got.Title != "Galle" {
		t.Fatalf("UpdateFields title: want=%q got=%q", "Galle", got.Title)
	}

	if err := repo.SoftDelete(dbc, created[0].ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	got, err = repo.GetByID(dbc, created[0].ID)
	if err != nil {
		t.Fatalf("GetByID after delete: %v", err)
	}
	if got != nil {
		t.Fatalf("GetByID after delete: want=nil got=%+v", got)
	}
}

func TestChatMessageRepoOrdering(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	sess := testutil.SeedSession(t, ctx, tx, uuid.New(), uuid.New())
	repo := NewChatMessageRepo(db, testutil.Logger(t))

	if _, err := repo.Append(dbc, sess.ID, []*types.ChatMessage{
		{TenantID: sess.TenantID, Role: types.RoleAssistant, Content: "hello"},
	}); err != nil {
		t.Fatalf("Append greeting: %v", err)
	}
	if _, err := repo.Append(dbc, sess.ID, []*types.ChatMessage{
		{TenantID: sess.TenantID, Role: types.RoleUser, Content: "I'm Nimal"},
		{TenantID: sess.TenantID, Role: types.RoleAssistant, Content: "Nice to meet you"},
	}); err != nil {
		t.Fatalf("Append exchange: %v", err)
	}

	msgs, err := repo.ListBySession(dbc, sess.ID, 0)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	want := []string{"hello", "I'm Nimal", "Nice to meet you"}
	if len(msgs) != len(want) {
		t.Fatalf("ListBySession: want=%d got=%d", len(want), len(msgs))
	}
	for i, m := range msgs {
		if m.Content != want[i] {
			t.Fatalf("message %d: want=%q got=%q", i, want[i], m.Content)
		}
		if m.Seq != int64(i+1) {
			t.Fatalf("message %d seq: want=%d got=%d", i, i+1, m.Seq)
		}
	}

	tail, err := repo.ListBySession(dbc, sess.ID, 2)
	if err != nil {
		t.Fatalf("ListBySession tail: %v", err)
	}
	wantTail := []string{"I'm Nimal", "Nice to meet you"}
	if len(tail) != len(wantTail) {
		t.Fatalf("ListBySession tail: want=%d got=%d", len(wantTail), len(tail))
	}
	for i, m := range tail {
		if m.Content != wantTail[i] {
			t.Fatalf("tail message %d: want=%q got=%q", i, wantTail[i], m.Content)
		}
	}

	if err := repo.DeleteBySession(dbc, sess.ID); err != nil {
		t.Fatalf("DeleteBySession: %v", err)
	}
	msgs, _ = repo.ListBySession(dbc, sess.ID, 0)
	if len(msgs) != 0 {
		t.Fatalf("after DeleteBySession: want=0 got=%d", len(msgs))
	}
}
