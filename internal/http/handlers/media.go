package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/manike-backend/internal/http/response"
	"github.com/yungbote/manike-backend/internal/modules/media"
	"github.com/yungbote/manike-backend/internal/pkg/dbctx"
	"github.com/yungbote/manike-backend/internal/services"
)

const maxUploadMemory = 32 << 20

type MediaHandler struct {
	media services.MediaService
}

func NewMediaHandler(media services.MediaService) *MediaHandler {
	return &MediaHandler{media: media}
}

type assetReq struct {
	Name        string  `json:"name" form:"name"`
	Tags        string  `json:"tags" form:"tags"`
	Location    string  `json:"location" form:"location"`
	URL         string  `json:"url" form:"url"`
	Description string  `json:"description" form:"description"`
	Type        string  `json:"type" form:"type"`
	Duration    float64 `json:"duration" form:"duration"`
}

// bindAsset accepts either a JSON body or a multipart form with an optional "file" part.
// The returned closer is non-nil when a file was opened.
func bindAsset(c *gin.Context) (media.AssetInput, io.ReadCloser, bool) {
	var req assetReq
	var file io.ReadCloser
	var filename string

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
			return media.AssetInput{}, nil, false
		}
		if err := c.ShouldBind(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return media.AssetInput{}, nil, false
		}
		if fh, err := c.FormFile("file"); err == nil {
			f, err := fh.Open()
			if err != nil {
				response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
				return media.AssetInput{}, nil, false
			}
			file, filename = f, fh.Filename
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return media.AssetInput{}, nil, false
	}

	return media.AssetInput{
		Name:        req.Name,
		Tags:        req.Tags,
		Location:    req.Location,
		URL:         req.URL,
		Description: req.Description,
		Type:        req.Type,
		Duration:    req.Duration,
		Filename:    filename,
	}, file, true
}

// POST /api/images
func (h *MediaHandler) CreateImage(c *gin.Context) {
	in, file, ok := bindAsset(c)
	if !ok {
		return
	}
	var upload io.Reader
	if file != nil {
		defer file.Close()
		upload = file
	}
	row, err := h.media.CreateImage(dbctx.Context{Ctx: c.Request.Context()}, in, upload)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"image": row})
}

// GET /api/images?limit=50
func (h *MediaHandler) ListImages(c *gin.Context) {
	rows, err := h.media.ListImages(dbctx.Context{Ctx: c.Request.Context()}, queryLimit(c))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"images": rows, "count": len(rows)})
}

// DELETE /api/images/:id
func (h *MediaHandler) DeleteImage(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_image_id")
	if !ok {
		return
	}
	if err := h.media.DeleteImage(dbctx.Context{Ctx: c.Request.Context()}, id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/clips
func (h *MediaHandler) CreateClip(c *gin.Context) {
	in, file, ok := bindAsset(c)
	if !ok {
		return
	}
	var upload io.Reader
	if file != nil {
		defer file.Close()
		upload = file
	}
	row, err := h.media.CreateClip(dbctx.Context{Ctx: c.Request.Context()}, in, upload)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"clip": row})
}

// GET /api/clips?limit=50
func (h *MediaHandler) ListClips(c *gin.Context) {
	rows, err := h.media.ListClips(dbctx.Context{Ctx: c.Request.Context()}, queryLimit(c))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"clips": rows, "count": len(rows)})
}

// DELETE /api/clips/:id
func (h *MediaHandler) DeleteClip(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_clip_id")
	if !ok {
		return
	}
	if err := h.media.DeleteClip(dbctx.Context{Ctx: c.Request.Context()}, id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
