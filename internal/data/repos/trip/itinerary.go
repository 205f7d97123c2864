package trip

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/manike-backend/internal/domain/trip"
	"github.com/yungbote/manike-backend/internal/pkg/dbctx"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

type ItineraryRepo interface {
	// Create writes the itinerary and its activities in one statement batch.
	Create(dbc dbctx.Context, row *types.Itinerary) (*types.Itinerary, error)
	GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Itinerary, error)
	ListByTenant(dbc dbctx.Context, tenantID uuid.UUID, limit int) ([]*types.Itinerary, error)
	ListActivities(dbc dbctx.Context, itineraryID uuid.UUID) ([]*types.ItineraryActivity, error)
	// AdvanceStatus only moves status forward; it reports whether a row changed.
	AdvanceStatus(dbc dbctx.Context, id uuid.UUID, status string) (bool, error)
}

type itineraryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewItineraryRepo(db *gorm.DB, log *logger.Logger) ItineraryRepo {
	return &itineraryRepo{db: db, log: log.With("repo", "ItineraryRepo")}
}

func (r *itineraryRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *itineraryRepo) Create(dbc dbctx.Context, row *types.Itinerary) (*types.Itinerary, error) {
	if row == nil {
		return nil, fmt.Errorf("missing itinerary")
	}
	if row.TenantID == uuid.Nil {
		return nil, fmt.Errorf("missing tenant_id")
	}
	if row.Status == "" {
		row.Status = types.ItineraryStatusGenerated
	}
	for i, act := range row.Activities {
		if act != nil && act.OrderIndex == 0 {
			act.OrderIndex = i
		}
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// GetByID scopes by tenant so another tenant's id reads as missing. Returns (nil, nil) when not found.
func (r *itineraryRepo) GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Itinerary, error) {
	if tenantID == uuid.Nil || id == uuid.Nil {
		return nil, fmt.Errorf("missing tenant_id or id")
	}
	var out []*types.Itinerary
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.Itinerary{}).
		Preload("Activities", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
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

func (r *itineraryRepo) ListByTenant(dbc dbctx.Context, tenantID uuid.UUID, limit int) ([]*types.Itinerary, error) {
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("missing tenant_id")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*types.Itinerary
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.Itinerary{}).
		Preload("Activities", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *itineraryRepo) ListActivities(dbc dbctx.Context, itineraryID uuid.UUID) ([]*types.ItineraryActivity, error) {
	if itineraryID == uuid.Nil {
		return nil, fmt.Errorf("missing itinerary_id")
	}
	var out []*types.ItineraryActivity
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.ItineraryActivity{}).
		Where("itinerary_id = ?", itineraryID).
		Order("order_index ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *itineraryRepo) AdvanceStatus(dbc dbctx.Context, id uuid.UUID, status string) (bool, error) {
	if id == uuid.Nil {
		return false, fmt.Errorf("missing id")
	}
	rank := types.ItineraryStatusRank(status)
	if rank == 0 {
		return false, fmt.Errorf("unknown itinerary status %q", status)
	}
	lower := make([]string, 0, 2)
	for _, s := range []string{types.ItineraryStatusGenerated, types.ItineraryStatusVideoCompiled} {
		if types.ItineraryStatusRank(s) < rank {
			lower = append(lower, s)
		}
	}
	if len(lower) == 0 {
		return false, nil
	}
	res := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.Itinerary{}).
		Where("id = ? AND status IN ?", id, lower).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
