package trip

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/manike-backend/internal/domain/trip"
	"github.com/yungbote/manike-backend/internal/pkg/dbctx"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

type ImageAssetRepo interface {
	Create(dbc dbctx.Context, rows []*types.ImageAsset) ([]*types.ImageAsset, error)
	GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.ImageAsset, error)
	ListByTenant(dbc dbctx.Context, tenantID uuid.UUID, limit int) ([]*types.ImageAsset, error)
	Delete(dbc dbctx.Context, tenantID, id uuid.UUID) error
}

type CinematicClipRepo interface {
	Create(dbc dbctx.Context, rows []*types.CinematicClip) ([]*types.CinematicClip, error)
	GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.CinematicClip, error)
	ListByTenant(dbc dbctx.Context, tenantID uuid.UUID, limit int) ([]*types.CinematicClip, error)
	Delete(dbc dbctx.Context, tenantID, id uuid.UUID) error
}

type imageAssetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewImageAssetRepo(db *gorm.DB, log *logger.Logger) ImageAssetRepo {
	return &imageAssetRepo{db: db, log: log.With("repo", "ImageAssetRepo")}
}

func (r *imageAssetRepo) Create(dbc dbctx.Context, rows []*types.ImageAsset) ([]*types.ImageAsset, error) {
	return createTenantRows(r.db, dbc, rows, func(row *types.ImageAsset) uuid.UUID { return row.TenantID })
}

func (r *imageAssetRepo) GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.ImageAsset, error) {
	return getTenantRow[types.ImageAsset](r.db, dbc, tenantID, id)
}

func (r *imageAssetRepo) ListByTenant(dbc dbctx.Context, tenantID uuid.UUID, limit int) ([]*types.ImageAsset, error) {
	return listTenantRows[types.ImageAsset](r.db, dbc, tenantID, limit)
}

func (r *imageAssetRepo) Delete(dbc dbctx.Context, tenantID, id uuid.UUID) error {
	return deleteTenantRow[types.ImageAsset](r.db, dbc, tenantID, id)
}

type cinematicClipRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCinematicClipRepo(db *gorm.DB, log *logger.Logger) CinematicClipRepo {
	return &cinematicClipRepo{db: db, log: log.With("repo", "CinematicClipRepo")}
}

func (r *cinematicClipRepo) Create(dbc dbctx.Context, rows []*types.CinematicClip) ([]*types.CinematicClip, error) {
	return createTenantRows(r.db, dbc, rows, func(row *types.CinematicClip) uuid.UUID { return row.TenantID })
}

func (r *cinematicClipRepo) GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.CinematicClip, error) {
	return getTenantRow[types.CinematicClip](r.db, dbc, tenantID, id)
}

func (r *cinematicClipRepo) ListByTenant(dbc dbctx.Context, tenantID uuid.UUID, limit int) ([]*types.CinematicClip, error) {
	return listTenantRows[types.CinematicClip](r.db, dbc, tenantID, limit)
}

func (r *cinematicClipRepo) Delete(dbc dbctx.Context, tenantID, id uuid.UUID) error {
	return deleteTenantRow[types.CinematicClip](r.db, dbc, tenantID, id)
}

func createTenantRows[T any](db *gorm.DB, dbc dbctx.Context, rows []*T, tenantOf func(*T) uuid.UUID) ([]*T, error) {
	if len(rows) == 0 {
		return []*T{}, nil
	}
	for _, row := range rows {
		if row == nil || tenantOf(row) == uuid.Nil {
			return nil, fmt.Errorf("missing tenant_id")
		}
	}
	txx := dbc.Tx
	if txx == nil {
		txx = db
	}
	if err := txx.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func getTenantRow[T any](db *gorm.DB, dbc dbctx.Context, tenantID, id uuid.UUID) (*T, error) {
	if tenantID == uuid.Nil || id == uuid.Nil {
		return nil, fmt.Errorf("missing tenant_id or id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = db
	}
	var out []*T
	if err := txx.WithContext(dbc.Ctx).
		Model(new(T)).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func listTenantRows[T any](db *gorm.DB, dbc dbctx.Context, tenantID uuid.UUID, limit int) ([]*T, error) {
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("missing tenant_id")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	txx := dbc.Tx
	if txx == nil {
		txx = db
	}
	var out []*T
	if err := txx.WithContext(dbc.Ctx).
		Model(new(T)).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func deleteTenantRow[T any](db *gorm.DB, dbc dbctx.Context, tenantID, id uuid.UUID) error {
	if tenantID == uuid.Nil || id == uuid.Nil {
		return fmt.Errorf("missing tenant_id or id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = db
	}
	res := txx.WithContext(dbc.Ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
