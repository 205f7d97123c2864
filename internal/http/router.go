package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/manike-backend/internal/http/handlers"
	httpMW "github.com/yungbote/manike-backend/internal/http/middleware"
	"github.com/yungbote/manike-backend/internal/observability"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string

	AuthMiddleware *httpMW.AuthMiddleware

	SessionHandler   *httpH.SessionHandler
	ItineraryHandler *httpH.ItineraryHandler
	MediaHandler     *httpH.MediaHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		// Sessions and chat
		if cfg.SessionHandler != nil {
			api.POST("/session/new", cfg.SessionHandler.NewSession)
			api.DELETE("/session/:id", cfg.SessionHandler.Delete)
			api.POST("/chat/send", cfg.SessionHandler.Send)
			api.GET("/chat/history/:session_id", cfg.SessionHandler.History)
			api.GET("/sessions", cfg.SessionHandler.ListOwn)
			api.GET("/sessions/shared", cfg.SessionHandler.ListShared)
			api.PATCH("/sessions/:id/share", cfg.SessionHandler.Share)
		}

		// Itineraries
		if cfg.ItineraryHandler != nil {
			api.POST("/itinerary/generate", cfg.ItineraryHandler.Generate)
			api.POST("/itinerary/from-session", cfg.ItineraryHandler.FromSession)
			api.GET("/itinerary", cfg.ItineraryHandler.List)
			api.GET("/itinerary/:id", cfg.ItineraryHandler.Get)
			api.POST("/itinerary/:id/compile-video", cfg.ItineraryHandler.CompileVideo)
			api.GET("/itinerary/:id/video-status", cfg.ItineraryHandler.VideoStatus)
		}

		// Media library. Reads are open to the tenant, writes need the admin role.
		if cfg.MediaHandler != nil {
			api.GET("/images", cfg.MediaHandler.ListImages)
			api.GET("/clips", cfg.MediaHandler.ListClips)

			admin := api.Group("")
			if cfg.AuthMiddleware != nil {
				admin.Use(cfg.AuthMiddleware.RequireAdmin())
			}
			admin.POST("/images", cfg.MediaHandler.CreateImage)
			admin.DELETE("/images/:id", cfg.MediaHandler.DeleteImage)
			admin.POST("/clips", cfg.MediaHandler.CreateClip)
			admin.DELETE("/clips/:id", cfg.MediaHandler.DeleteClip)
		}
	}

	return r
}
