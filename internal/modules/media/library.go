package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/manike-backend/internal/data/repos"
	types "github.com/yungbote/manike-backend/internal/domain/trip"
	"github.com/yungbote/manike-backend/internal/pkg/dbctx"
	"github.com/yungbote/manike-backend/internal/platform/gcp"
	"github.com/yungbote/manike-backend/internal/platform/logger"
	"github.com/yungbote/manike-backend/internal/platform/qdrant"
)

var (
	ErrAssetNotFound = errors.New("media asset not found")
	ErrInvalidAsset  = errors.New("invalid media asset")
)

type LibraryDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Images repos.ImageAssetRepo
	Clips  repos.CinematicClipRepo

	Embed   Embedder
	Vectors qdrant.VectorStore
	// Optional. Without a bucket only URL-based ingestion works.
	Bucket gcp.BucketService
}

// AssetInput describes one library asset. Either URL or an upload reader is required.
type AssetInput struct {
	Name        string
	Tags        string
	Location    string
	URL         string
	Description string
	Type        string
	Duration    float64
	Filename    string
}

// Library owns the tenant asset catalogue: relational rows plus their vectors.
type Library struct {
	deps LibraryDeps
	log  *logger.Logger
}

func NewLibrary(deps LibraryDeps) *Library {
	return &Library{deps: deps, log: deps.Log.With("module", "MediaLibrary")}
}

func (l *Library) IngestImage(ctx context.Context, tenantID uuid.UUID, in AssetInput, upload io.Reader) (*types.ImageAsset, error) {
	row := &types.ImageAsset{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Name:        strings.TrimSpace(in.Name),
		Tags:        strings.TrimSpace(in.Tags),
		Location:    strings.TrimSpace(in.Location),
		URL:         strings.TrimSpace(in.URL),
		Description: in.Description,
		Type:        in.Type,
	}
	url, err := l.resolveURL(ctx, tenantID, "images", row.ID, row.Name, row.URL, in.Filename, upload)
	if err != nil {
		return nil, err
	}
	row.URL = url

	err = l.ingest(ctx, tenantID, types.MediaKindImage, row.ID, row.URL, row.EmbeddingText(), func(dbc dbctx.Context) error {
		_, err := l.deps.Images.Create(dbc, []*types.ImageAsset{row})
		return err
	})
	if err != nil {
		l.cleanupUpload(ctx, upload, row.URL)
		return nil, err
	}
	l.log.Info("Image ingested", "tenant_id", tenantID, "image_id", row.ID)
	return row, nil
}

func (l *Library) IngestClip(ctx context.Context, tenantID uuid.UUID, in AssetInput, upload io.Reader) (*types.CinematicClip, error) {
	row := &types.CinematicClip{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Name:        strings.TrimSpace(in.Name),
		Tags:        strings.TrimSpace(in.Tags),
		Location:    strings.TrimSpace(in.Location),
		URL:         strings.TrimSpace(in.URL),
		Duration:    in.Duration,
		Description: in.Description,
		Type:        in.Type,
	}
	url, err := l.resolveURL(ctx, tenantID, "clips", row.ID, row.Name, row.URL, in.Filename, upload)
	if err != nil {
		return nil, err
	}
	row.URL = url

	err = l.ingest(ctx, tenantID, types.MediaKindClip, row.ID, row.URL, row.EmbeddingText(), func(dbc dbctx.Context) error {
		_, err := l.deps.Clips.Create(dbc, []*types.CinematicClip{row})
		return err
	})
	if err != nil {
		l.cleanupUpload(ctx, upload, row.URL)
		return nil, err
	}
	l.log.Info("Clip ingested", "tenant_id", tenantID, "clip_id", row.ID)
	return row, nil
}

func (l *Library) ListImages(ctx context.Context, tenantID uuid.UUID, limit int) ([]*types.ImageAsset, error) {
	return l.deps.Images.ListByTenant(dbctx.Context{Ctx: ctx}, tenantID, limit)
}

func (l *Library) ListClips(ctx context.Context, tenantID uuid.UUID, limit int) ([]*types.CinematicClip, error) {
	return l.deps.Clips.ListByTenant(dbctx.Context{Ctx: ctx}, tenantID, limit)
}

func (l *Library) DeleteImage(ctx context.Context, tenantID, id uuid.UUID) error {
	row, err := l.deps.Images.GetByID(dbctx.Context{Ctx: ctx}, tenantID, id)
	if err != nil {
		return err
	}
	if row == nil {
		return ErrAssetNotFound
	}
	return l.remove(ctx, tenantID, types.MediaKindImage, id, row.URL, func(dbc dbctx.Context) error {
		return l.deps.Images.Delete(dbc, tenantID, id)
	})
}

func (l *Library) DeleteClip(ctx context.Context, tenantID, id uuid.UUID) error {
	row, err := l.deps.Clips.GetByID(dbctx.Context{Ctx: ctx}, tenantID, id)
	if err != nil {
		return err
	}
	if row == nil {
		return ErrAssetNotFound
	}
	return l.remove(ctx, tenantID, types.MediaKindClip, id, row.URL, func(dbc dbctx.Context) error {
		return l.deps.Clips.Delete(dbc, tenantID, id)
	})
}

// ingest writes the row and its vector in one transaction; a failed upsert rolls the row back.
func (l *Library) ingest(ctx context.Context, tenantID uuid.UUID, kind string, id uuid.UUID, url, text string, create func(dbctx.Context) error) error {
	var vec []float32
	if l.deps.Embed != nil && l.deps.Vectors != nil {
		vecs, err := l.deps.Embed.Embed(ctx, []string{text})
		if err != nil {
			return fmt.Errorf("embed %s: %w", kind, err)
		}
		if len(vecs) == 0 {
			return fmt.Errorf("embed %s: empty embedding", kind)
		}
		vec = vecs[0]
	}
	return l.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := create(dbctx.Context{Ctx: ctx, Tx: tx}); err != nil {
			return err
		}
		if vec == nil {
			return nil
		}
		return l.deps.Vectors.Upsert(ctx, Namespace(tenantID, kind), []qdrant.Vector{{
			ID:     id.String(),
			Values: vec,
			Payload: map[string]any{
				payloadAssetID:  id.String(),
				payloadAssetURL: url,
				payloadTenantID: tenantID.String(),
				payloadKind:     kind,
			},
		}})
	})
}

func (l *Library) remove(ctx context.Context, tenantID uuid.UUID, kind string, id uuid.UUID, url string, del func(dbctx.Context) error) error {
	err := l.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := del(dbctx.Context{Ctx: ctx, Tx: tx}); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAssetNotFound
			}
			return err
		}
		if l.deps.Vectors == nil {
			return nil
		}
		return l.deps.Vectors.DeleteIDs(ctx, Namespace(tenantID, kind), []string{id.String()})
	})
	if err != nil {
		return err
	}
	if l.deps.Bucket != nil && url != "" {
		if err := l.deps.Bucket.DeleteByURL(ctx, url); err != nil {
			l.log.Warn("Asset blob delete failed", "kind", kind, "asset_id", id, "error", err)
		}
	}
	l.log.Info("Asset deleted", "kind", kind, "tenant_id", tenantID, "asset_id", id)
	return nil
}

func (l *Library) resolveURL(ctx context.Context, tenantID uuid.UUID, folder string, id uuid.UUID, name, url, filename string, upload io.Reader) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidAsset)
	}
	if upload == nil {
		if url == "" {
			return "", fmt.Errorf("%w: url or file upload is required", ErrInvalidAsset)
		}
		return url, nil
	}
	if l.deps.Bucket == nil {
		return "", fmt.Errorf("%w: uploads are not configured", ErrInvalidAsset)
	}
	key := fmt.Sprintf("tenants/%s/%s/%s%s", tenantID, folder, id, strings.ToLower(path.Ext(filename)))
	return l.deps.Bucket.UploadFile(dbctx.Context{Ctx: ctx}, gcp.BucketCategoryMedia, key, upload)
}

func (l *Library) cleanupUpload(ctx context.Context, upload io.Reader, url string) {
	if upload == nil || l.deps.Bucket == nil || url == "" {
		return
	}
	if err := l.deps.Bucket.DeleteByURL(ctx, url); err != nil {
		l.log.Warn("Orphaned upload cleanup failed", "url", url, "error", err)
	}
}
