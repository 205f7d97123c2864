package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/manike-backend/internal/http/response"
	"github.com/yungbote/manike-backend/internal/pkg/dbctx"
	"github.com/yungbote/manike-backend/internal/services"
)

type ItineraryHandler struct {
	itineraries services.ItineraryService
}

func NewItineraryHandler(itineraries services.ItineraryService) *ItineraryHandler {
	return &ItineraryHandler{itineraries: itineraries}
}

// POST /api/itinerary/generate
func (h *ItineraryHandler) Generate(c *gin.Context) {
	var req services.LegacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.itineraries.GenerateLegacy(dbctx.Context{Ctx: c.Request.Context()}, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, out)
}

type fromSessionReq struct {
	SessionID uuid.UUID `json:"session_id" binding:"required"`
}

// POST /api/itinerary/from-session
func (h *ItineraryHandler) FromSession(c *gin.Context) {
	var req fromSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.itineraries.GenerateFromSession(dbctx.Context{Ctx: c.Request.Context()}, req.SessionID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/itinerary?limit=50
func (h *ItineraryHandler) List(c *gin.Context) {
	rows, err := h.itineraries.List(dbctx.Context{Ctx: c.Request.Context()}, queryLimit(c))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"itineraries": rows})
}

// GET /api/itinerary/:id
func (h *ItineraryHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_itinerary_id")
	if !ok {
		return
	}
	out, err := h.itineraries.Get(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// POST /api/itinerary/:id/compile-video
func (h *ItineraryHandler) CompileVideo(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_itinerary_id")
	if !ok {
		return
	}
	out, err := h.itineraries.CompileVideo(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/itinerary/:id/video-status
func (h *ItineraryHandler) VideoStatus(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_itinerary_id")
	if !ok {
		return
	}
	out, err := h.itineraries.VideoStatus(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, out)
}
