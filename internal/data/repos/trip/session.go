package trip

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/manike-backend/internal/domain/trip"
	"github.com/yungbote/manike-backend/internal/pkg/dbctx"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

type ChatSessionRepo interface {
	Create(dbc dbctx.Context, rows []*types.ChatSession) ([]*types.ChatSession, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatSession, error)
	ListByUser(dbc dbctx.Context, tenantID, userID uuid.UUID, limit int) ([]*types.ChatSession, error)
	ListShared(dbc dbctx.Context, tenantID uuid.UUID, limit int) ([]*types.ChatSession, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatSession, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SoftDelete(dbc dbctx.Context, id uuid.UUID) error
}

type chatSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatSessionRepo(db *gorm.DB, log *logger.Logger) ChatSessionRepo {
	return &chatSessionRepo{db: db, log: log.With("repo", "ChatSessionRepo")}
}

func (r *chatSessionRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *chatSessionRepo) Create(dbc dbctx.Context, rows []*types.ChatSession) ([]*types.ChatSession, error) {
	if len(rows) == 0 {
		return []*types.ChatSession{}, nil
	}
	for _, row := range rows {
		if row != nil && row.Title == "" {
			row.Title = types.DefaultSessionTitle
		}
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetByID returns (nil, nil) when the session is missing or soft-deleted.
func (r *chatSessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatSession, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	var out []*types.ChatSession
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.ChatSession{}).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *chatSessionRepo) ListByUser(dbc dbctx.Context, tenantID, userID uuid.UUID, limit int) ([]*types.ChatSession, error) {
	if tenantID == uuid.Nil || userID == uuid.Nil {
		return nil, fmt.Errorf("missing tenant_id or user_id")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*types.ChatSession
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.ChatSession{}).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chatSessionRepo) ListShared(dbc dbctx.Context, tenantID uuid.UUID, limit int) ([]*types.ChatSession, error) {
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("missing tenant_id")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*types.ChatSession
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.ChatSession{}).
		Where("tenant_id = ? AND is_shared = ?", tenantID, true).
		Order("updated_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chatSessionRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatSession, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByID required dbc.Tx")
	}
	var out types.ChatSession
	if err := dbc.Tx.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *chatSessionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["updated_at"] = time.Now().UTC()
	return r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.ChatSession{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *chatSessionRepo) SoftDelete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	return r.tx(dbc).WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.ChatSession{}).Error
}
