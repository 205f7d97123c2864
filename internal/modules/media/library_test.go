package media

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/manike-backend/internal/data/repos"
	"github.com/yungbote/manike-backend/internal/data/repos/testutil"
	types "github.com/yungbote/manike-backend/internal/domain/trip"
	"github.com/yungbote/manike-backend/internal/pkg/dbctx"
)

func newTestLibrary(t *testing.T, vs *memVectors) (*Library, LibraryDeps) {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	deps := LibraryDeps{
		DB:      db,
		Log:     log,
		Images:  repos.NewImageAssetRepo(db, log),
		Clips:   repos.NewCinematicClipRepo(db, log),
		Embed:   &fakeEmbedder{},
		Vectors: vs,
	}
	return NewLibrary(deps), deps
}

func TestIngestClipWritesRowAndVector(t *testing.T) {
	ctx := context.Background()
	vs := newMemVectors()
	lib, deps := newTestLibrary(t, vs)
	tenant := uuid.New()

	clip, err := lib.IngestClip(ctx, tenant, AssetInput{
		Name:     "Nine Arches",
		Tags:     "ella,bridge,railway",
		Location: "Ella",
		URL:      "https://cdn.test/nine-arches.mp4",
		Duration: 12.5,
	}, nil)
	if err != nil {
		t.Fatalf("IngestClip: %v", err)
	}
	if got := vs.count(Namespace(tenant, types.MediaKindClip)); got != 1 {
		t.Fatalf("vectors: want=1 got=%d", got)
	}
	row, err := deps.Clips.GetByID(dbctx.Context{Ctx: ctx}, tenant, clip.ID)
	if err != nil || row == nil {
		t.Fatalf("GetByID: row=%v err=%v", row, err)
	}

	m := NewVectorMatcher(deps.Embed, vs, deps.Log)
	match, err := m.MatchClip(ctx, tenant, "nine arches bridge")
	if err != nil || match == nil || match.ID != clip.ID {
		t.Fatalf("match after ingest: want=%s got=%+v err=%v", clip.ID, match, err)
	}
}

func TestIngestRollsBackWhenVectorUpsertFails(t *testing.T) {
	ctx := context.Background()
	vs := newMemVectors()
	vs.upsertErr = errVectorDown
	lib, deps := newTestLibrary(t, vs)
	tenant := uuid.New()

	_, err := lib.IngestImage(ctx, tenant, AssetInput{Name: "Galle Fort", URL: "https://cdn.test/fort.jpg"}, nil)
	if !errors.Is(err, errVectorDown) {
		t.Fatalf("err: want=%v got=%v", errVectorDown, err)
	}
	rows, err := deps.Images.ListByTenant(dbctx.Context{Ctx: ctx}, tenant, 10)
	if err != nil {
		t.Fatalf("ListByTenant: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("rows after failed ingest: want=0 got=%d", len(rows))
	}
}

func TestIngestValidation(t *testing.T) {
	lib, _ := newTestLibrary(t, newMemVectors())
	tests := []struct {
		name string
		in   AssetInput
	}{
		{name: "missing name", in: AssetInput{URL: "https://cdn.test/x.jpg"}},
		{name: "missing url and upload", in: AssetInput{Name: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lib.IngestImage(context.Background(), uuid.New(), tt.in, nil)
			if !errors.Is(err, ErrInvalidAsset) {
				t.Fatalf("err: want=%v got=%v", ErrInvalidAsset, err)
			}
		})
	}
}

func TestDeleteImageRemovesVectorAndIsTenantScoped(t *testing.T) {
	ctx := context.Background()
	vs := newMemVectors()
	lib, _ := newTestLibrary(t, vs)
	tenant := uuid.New()

	img, err := lib.IngestImage(ctx, tenant, AssetInput{Name: "Kandy Lake", URL: "https://cdn.test/lake.jpg"}, nil)
	if err != nil {
		t.Fatalf("IngestImage: %v", err)
	}
	if err := lib.DeleteImage(ctx, uuid.New(), img.ID); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("cross-tenant delete: want=%v got=%v", ErrAssetNotFound, err)
	}
	if err := lib.DeleteImage(ctx, tenant, img.ID); err != nil {
		t.Fatalf("DeleteImage: %v", err)
	}
	if got := vs.count(Namespace(tenant, types.MediaKindImage)); got != 0 {
		t.Fatalf("vectors after delete: want=0 got=%d", got)
	}
	if err := lib.DeleteImage(ctx, tenant, img.ID); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("second delete: want=%v got=%v", ErrAssetNotFound, err)
	}
}
