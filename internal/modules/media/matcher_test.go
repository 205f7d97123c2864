package media

import (
	"context"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/manike-backend/internal/domain/trip"
	"github.com/yungbote/manike-backend/internal/platform/logger"
	"github.com/yungbote/manike-backend/internal/platform/qdrant"
)

func seedVectors(vs *memVectors, tenantID uuid.UUID, kind string, ids ...uuid.UUID) {
	for _, id := range ids {
		_ = vs.Upsert(context.Background(), Namespace(tenantID, kind), []qdrant.Vector{{
			ID:      id.String(),
			Payload: map[string]any{payloadAssetURL: "https://cdn.test/" + id.String()},
		}})
	}
}

func TestMatchImageExcludesUsedThenFallsBack(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	a, b := uuid.New(), uuid.New()
	vs := newMemVectors()
	seedVectors(vs, tenant, types.MediaKindImage, a, b)
	m := NewVectorMatcher(&fakeEmbedder{}, vs, logger.Nop())

	tests := []struct {
		name    string
		exclude map[string]struct{}
		want    uuid.UUID
	}{
		{name: "no exclusions", exclude: nil, want: a},
		{name: "best excluded", exclude: map[string]struct{}{a.String(): {}}, want: b},
		{name: "all excluded falls back to top", exclude: map[string]struct{}{a.String(): {}, b.String(): {}}, want: a},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.MatchImage(ctx, tenant, "galle fort sunset", tt.exclude)
			if err != nil {
				t.Fatalf("MatchImage: %v", err)
			}
			if got == nil || got.ID != tt.want {
				t.Fatalf("match: want=%s got=%+v", tt.want, got)
			}
			if got.URL != "https://cdn.test/"+tt.want.String() {
				t.Fatalf("url: got=%q", got.URL)
			}
		})
	}
}

func TestMatchIsTenantScoped(t *testing.T) {
	ctx := context.Background()
	vs := newMemVectors()
	seedVectors(vs, uuid.New(), types.MediaKindClip, uuid.New())
	m := NewVectorMatcher(&fakeEmbedder{}, vs, logger.Nop())

	got, err := m.MatchClip(ctx, uuid.New(), "whale watching")
	if err != nil {
		t.Fatalf("MatchClip: %v", err)
	}
	if got != nil {
		t.Fatalf("match from another tenant: got=%+v", got)
	}
}

func TestMatchEmptyQuerySkipsEmbedding(t *testing.T) {
	emb := &fakeEmbedder{}
	m := NewVectorMatcher(emb, newMemVectors(), logger.Nop())
	got, err := m.MatchClip(context.Background(), uuid.New(), "   ")
	if err != nil || got != nil {
		t.Fatalf("empty query: want=(nil, nil) got=(%v, %v)", got, err)
	}
	if emb.calls != 0 {
		t.Fatalf("embed calls: want=0 got=%d", emb.calls)
	}
}
