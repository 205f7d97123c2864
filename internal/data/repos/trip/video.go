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

type FinalVideoRepo interface {
	// Create fails with gorm.ErrDuplicatedKey when a row already exists for the itinerary.
	Create(dbc dbctx.Context, row *types.FinalVideo) (*types.FinalVideo, error)
	GetByItinerary(dbc dbctx.Context, itineraryID uuid.UUID) (*types.FinalVideo, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// DeleteByItinerary hard-deletes so the unique index frees up for a retry.
	DeleteByItinerary(dbc dbctx.Context, itineraryID uuid.UUID) (int64, error)
}

type finalVideoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFinalVideoRepo(db *gorm.DB, log *logger.Logger) FinalVideoRepo {
	return &finalVideoRepo{db: db, log: log.With("repo", "FinalVideoRepo")}
}

func (r *finalVideoRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *finalVideoRepo) Create(dbc dbctx.Context, row *types.FinalVideo) (*types.FinalVideo, error) {
	if row == nil || row.ItineraryID == uuid.Nil {
		return nil, fmt.Errorf("missing itinerary_id")
	}
	if row.Status == "" {
		row.Status = types.VideoStatusProcessing
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *finalVideoRepo) GetByItinerary(dbc dbctx.Context, itineraryID uuid.UUID) (*types.FinalVideo, error) {
	if itineraryID == uuid.Nil {
		return nil, fmt.Errorf("missing itinerary_id")
	}
	var out []*types.FinalVideo
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.FinalVideo{}).
		Where("itinerary_id = ?", itineraryID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *finalVideoRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["updated_at"] = time.Now().UTC()
	return r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.FinalVideo{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *finalVideoRepo) DeleteByItinerary(dbc dbctx.Context, itineraryID uuid.UUID) (int64, error) {
	if itineraryID == uuid.Nil {
		return 0, fmt.Errorf("missing itinerary_id")
	}
	res := r.tx(dbc).WithContext(dbc.Ctx).
		Where("itinerary_id = ?", itineraryID).
		Delete(&types.FinalVideo{})
	return res.RowsAffected, res.Error
}
