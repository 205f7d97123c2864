package services

import (
	"io"

	"github.com/google/uuid"

	types "github.com/yungbote/manike-backend/internal/domain/trip"
	"github.com/yungbote/manike-backend/internal/modules/media"
	"github.com/yungbote/manike-backend/internal/pkg/ctxutil"
	"github.com/yungbote/manike-backend/internal/pkg/dbctx"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

// MediaService exposes the tenant asset library. upload may be nil when in.URL is set.
type MediaService interface {
	CreateImage(dbc dbctx.Context, in media.AssetInput, upload io.Reader) (*types.ImageAsset, error)
	ListImages(dbc dbctx.Context, limit int) ([]*types.ImageAsset, error)
	DeleteImage(dbc dbctx.Context, id uuid.UUID) error

	CreateClip(dbc dbctx.Context, in media.AssetInput, upload io.Reader) (*types.CinematicClip, error)
	ListClips(dbc dbctx.Context, limit int) ([]*types.CinematicClip, error)
	DeleteClip(dbc dbctx.Context, id uuid.UUID) error
}

type mediaService struct {
	log     *logger.Logger
	library *media.Library
}

func NewMediaService(baseLog *logger.Logger, library *media.Library) MediaService {
	return &mediaService{log: baseLog.With("service", "MediaService"), library: library}
}

func tenantOf(dbc dbctx.Context) (uuid.UUID, error) {
	id := ctxutil.GetIdentity(dbc.Ctx)
	if id == nil || id.TenantID == uuid.Nil {
		return uuid.Nil, errNotAuthenticated
	}
	return id.TenantID, nil
}

func (s *mediaService) CreateImage(dbc dbctx.Context, in media.AssetInput, upload io.Reader) (*types.ImageAsset, error) {
	tenantID, err := tenantOf(dbc)
	if err != nil {
		return nil, err
	}
	row, err := s.library.IngestImage(dbc.Ctx, tenantID, in, upload)
	return row, classify(err)
}

func (s *mediaService) ListImages(dbc dbctx.Context, limit int) ([]*types.ImageAsset, error) {
	tenantID, err := tenantOf(dbc)
	if err != nil {
		return nil, err
	}
	return s.library.ListImages(dbc.Ctx, tenantID, limit)
}

func (s *mediaService) DeleteImage(dbc dbctx.Context, id uuid.UUID) error {
	tenantID, err := tenantOf(dbc)
	if err != nil {
		return err
	}
	return classify(s.library.DeleteImage(dbc.Ctx, tenantID, id))
}

func (s *mediaService) CreateClip(dbc dbctx.Context, in media.AssetInput, upload io.Reader) (*types.CinematicClip, error) {
	tenantID, err := tenantOf(dbc)
	if err != nil {
		return nil, err
	}
	row, err := s.library.IngestClip(dbc.Ctx, tenantID, in, upload)
	return row, classify(err)
}

func (s *mediaService) ListClips(dbc dbctx.Context, limit int) ([]*types.CinematicClip, error) {
	tenantID, err := tenantOf(dbc)
	if err != nil {
		return nil, err
	}
	return s.library.ListClips(dbc.Ctx, tenantID, limit)
}

func (s *mediaService) DeleteClip(dbc dbctx.Context, id uuid.UUID) error {
	tenantID, err := tenantOf(dbc)
	if err != nil {
		return err
	}
	return classify(s.library.DeleteClip(dbc.Ctx, tenantID, id))
}
