package app

import (
	"gorm.io/gorm"

	apphttp "github.com/yungbote/manike-backend/internal/http"
	httpH "github.com/yungbote/manike-backend/internal/http/handlers"
	httpMW "github.com/yungbote/manike-backend/internal/http/middleware"
	"github.com/yungbote/manike-backend/internal/observability"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health      *httpH.HealthHandler
	Sessions    *httpH.SessionHandler
	Itineraries *httpH.ItineraryHandler
	Media       *httpH.MediaHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      httpH.NewHealthHandler(db),
		Sessions:    httpH.NewSessionHandler(serviceset.Sessions),
		Itineraries: httpH.NewItineraryHandler(serviceset.Itineraries),
		Media:       httpH.NewMediaHandler(serviceset.Media),
	}
}

func wireMiddleware(log *logger.Logger, serviceset Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, serviceset.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *apphttp.Server {
	return apphttp.NewServer(":"+cfg.Port, apphttp.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		ServiceName:      cfg.ServiceName,
		AuthMiddleware:   middleware.Auth,
		SessionHandler:   handlers.Sessions,
		ItineraryHandler: handlers.Itineraries,
		MediaHandler:     handlers.Media,
		HealthHandler:    handlers.Health,
	})
}
