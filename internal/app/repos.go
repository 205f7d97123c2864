package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/manike-backend/internal/data/repos"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

type Repos struct {
	Sessions    repos.ChatSessionRepo
	Messages    repos.ChatMessageRepo
	Itineraries repos.ItineraryRepo
	Videos      repos.FinalVideoRepo
	Images      repos.ImageAssetRepo
	Clips       repos.CinematicClipRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Sessions:    repos.NewChatSessionRepo(db, log),
		Messages:    repos.NewChatMessageRepo(db, log),
		Itineraries: repos.NewItineraryRepo(db, log),
		Videos:      repos.NewFinalVideoRepo(db, log),
		Images:      repos.NewImageAssetRepo(db, log),
		Clips:       repos.NewCinematicClipRepo(db, log),
	}
}
