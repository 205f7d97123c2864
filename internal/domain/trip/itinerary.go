package trip

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ItineraryStatusGenerated     = "generated"
	ItineraryStatusVideoCompiled = "video_compiled"
)

// ItineraryStatusRank orders statuses so updates can refuse to move backwards.
func ItineraryStatusRank(status string) int {
	switch status {
	case ItineraryStatusGenerated:
		return 1
	case ItineraryStatusVideoCompiled:
		return 2
	default:
		return 0
	}
}

type Itinerary struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	SessionID *uuid.UUID `gorm:"type:uuid;column:session_id;index" json:"session_id,omitempty"`

	Prompt      string         `gorm:"column:prompt;type:text" json:"prompt"`
	Destination string         `gorm:"column:destination;not null" json:"destination"`
	Days        int            `gorm:"column:days;not null;default:1" json:"days"`
	Status      string         `gorm:"column:status;not null;default:'generated';index" json:"status"`
	Plan        datatypes.JSON `gorm:"type:jsonb;column:rich_itinerary_json" json:"plan,omitempty"`
	UserEmail   string         `gorm:"column:user_email" json:"user_email,omitempty"`

	Activities []*ItineraryActivity `gorm:"foreignKey:ItineraryID" json:"activities,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Itinerary) TableName() string { return "itinerary" }

func (i *Itinerary) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// ItineraryActivity is written once per generation. OrderIndex is the compile order.
type ItineraryActivity struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ItineraryID uuid.UUID `gorm:"type:uuid;not null;index" json:"itinerary_id"`

	Day          int    `gorm:"column:day;not null" json:"day"`
	ActivityName string `gorm:"column:activity_name;not null" json:"activity_name"`
	Location     string `gorm:"column:location" json:"location"`
	Keywords     string `gorm:"column:keywords;type:text" json:"keywords"`
	Description  string `gorm:"column:description;type:text" json:"description,omitempty"`
	Category     string `gorm:"column:category" json:"category,omitempty"`

	ImageID         *uuid.UUID `gorm:"type:uuid;column:image_id" json:"image_id,omitempty"`
	ImageURL        string     `gorm:"column:image_url" json:"image_url,omitempty"`
	CinematicClipID *uuid.UUID `gorm:"type:uuid;column:cinematic_clip_id" json:"cinematic_clip_id,omitempty"`
	ClipURL         string     `gorm:"column:cinematic_clip_url" json:"cinematic_clip_url,omitempty"`

	OrderIndex int       `gorm:"column:order_index;not null;index" json:"order_index"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (ItineraryActivity) TableName() string { return "itinerary_activity" }

func (a *ItineraryActivity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
