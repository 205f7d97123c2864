package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/manike-backend/internal/data/repos/trip"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

type ChatSessionRepo = trip.ChatSessionRepo
type ChatMessageRepo = trip.ChatMessageRepo

type ItineraryRepo = trip.ItineraryRepo
type FinalVideoRepo = trip.FinalVideoRepo

type ImageAssetRepo = trip.ImageAssetRepo
type CinematicClipRepo = trip.CinematicClipRepo

func NewChatSessionRepo(db *gorm.DB, baseLog *logger.Logger) ChatSessionRepo {
	return trip.NewChatSessionRepo(db, baseLog)
}
func NewChatMessageRepo(db *gorm.DB, baseLog *logger.Logger) ChatMessageRepo {
	return trip.NewChatMessageRepo(db, baseLog)
}

func NewItineraryRepo(db *gorm.DB, baseLog *logger.Logger) ItineraryRepo {
	return trip.NewItineraryRepo(db, baseLog)
}
func NewFinalVideoRepo(db *gorm.DB, baseLog *logger.Logger) FinalVideoRepo {
	return trip.NewFinalVideoRepo(db, baseLog)
}

func NewImageAssetRepo(db *gorm.DB, baseLog *logger.Logger) ImageAssetRepo {
	return trip.NewImageAssetRepo(db, baseLog)
}
func NewCinematicClipRepo(db *gorm.DB, baseLog *logger.Logger) CinematicClipRepo {
	return trip.NewCinematicClipRepo(db, baseLog)
}
