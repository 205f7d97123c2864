package trip

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MediaKindImage = "image"
	MediaKindClip  = "clip"
)

type ImageAsset struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`

	Name        string `gorm:"column:name;not null" json:"name"`
	Tags        string `gorm:"column:tags;type:text" json:"tags"`
	Location    string `gorm:"column:location" json:"location"`
	URL         string `gorm:"column:image_url;not null" json:"image_url"`
	Description string `gorm:"column:description;type:text" json:"description,omitempty"`
	Type        string `gorm:"column:type" json:"type,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ImageAsset) TableName() string { return "image_library" }

func (a *ImageAsset) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type CinematicClip struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`

	Name        string  `gorm:"column:name;not null" json:"name"`
	Tags        string  `gorm:"column:tags;type:text" json:"tags"`
	Location    string  `gorm:"column:location" json:"location"`
	URL         string  `gorm:"column:video_url;not null" json:"video_url"`
	Duration    float64 `gorm:"column:duration" json:"duration,omitempty"`
	Description string  `gorm:"column:description;type:text" json:"description,omitempty"`
	Type        string  `gorm:"column:type" json:"type,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CinematicClip) TableName() string { return "cinematic_clip" }

func (c *CinematicClip) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// EmbeddingText is the text indexed for similarity search.
func (a *ImageAsset) EmbeddingText() string { return embeddingText(a.Name, a.Tags, a.Location) }

func (c *CinematicClip) EmbeddingText() string { return embeddingText(c.Name, c.Tags, c.Location) }

func embeddingText(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += p
	}
	return out
}
