package trip

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	VideoStatusProcessing = "processing"
	VideoStatusCompiled   = "compiled"
	VideoStatusFailed     = "failed"
)

// FinalVideo is unique per itinerary. Rows are hard-deleted on retry so the unique index stays usable.
type FinalVideo struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ItineraryID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_final_video_itinerary" json:"itinerary_id"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`

	Status    string  `gorm:"column:status;not null;default:'processing';index" json:"status"`
	VideoURL  string  `gorm:"column:video_url" json:"video_url,omitempty"`
	Duration  float64 `gorm:"column:duration" json:"duration,omitempty"`
	ClipCount int     `gorm:"column:clip_count;not null;default:0" json:"clip_count"`
	Error     string  `gorm:"column:error;type:text" json:"error,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (FinalVideo) TableName() string { return "final_video" }

func (v *FinalVideo) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
