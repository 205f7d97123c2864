package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/manike-backend/internal/http/response"
	"github.com/yungbote/manike-backend/internal/pkg/dbctx"
	"github.com/yungbote/manike-backend/internal/services"
)

type SessionHandler struct {
	sessions services.SessionService
}

func NewSessionHandler(sessions services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// POST /api/session/new
func (h *SessionHandler) NewSession(c *gin.Context) {
	out, err := h.sessions.Create(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, out)
}

type sendReq struct {
	SessionID uuid.UUID `json:"session_id" binding:"required"`
	Message   string    `json:"message"`
}

// POST /api/chat/send
func (h *SessionHandler) Send(c *gin.Context) {
	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.sessions.Send(dbctx.Context{Ctx: c.Request.Context()}, req.SessionID, req.Message)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/chat/history/:session_id
func (h *SessionHandler) History(c *gin.Context) {
	id, ok := pathUUID(c, "session_id", "invalid_session_id")
	if !ok {
		return
	}
	out, err := h.sessions.History(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/sessions?limit=50
func (h *SessionHandler) ListOwn(c *gin.Context) {
	rows, err := h.sessions.ListOwn(dbctx.Context{Ctx: c.Request.Context()}, queryLimit(c))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sessions": rows})
}

// GET /api/sessions/shared?limit=50
func (h *SessionHandler) ListShared(c *gin.Context) {
	rows, err := h.sessions.ListShared(dbctx.Context{Ctx: c.Request.Context()}, queryLimit(c))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sessions": rows})
}

type shareReq struct {
	Shared *bool `json:"shared" binding:"required"`
}

// PATCH /api/sessions/:id/share
func (h *SessionHandler) Share(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_session_id")
	if !ok {
		return
	}
	var req shareReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	row, err := h.sessions.SetShared(dbctx.Context{Ctx: c.Request.Context()}, id, *req.Shared)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"session": row})
}

// DELETE /api/session/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_session_id")
	if !ok {
		return
	}
	if err := h.sessions.Delete(dbctx.Context{Ctx: c.Request.Context()}, id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
