package http

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-claims/internal/application/service"
	"github.com/garyjia/expense-claims/internal/domain/entity"
)

// ListAttachments handles GET /api/claims/:id/attachments
func (h *Handlers) ListAttachments(c *gin.Context) {
	claimID, ok := paramID(c, "id")
	if !ok {
		return
	}

	attachments, err := h.services.Attachments.List(c.Request.Context(), claimID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusOK, attachments)
}

// UploadAttachment handles POST /api/claims/:id/attachments (multipart "file")
func (h *Handlers) UploadAttachment(c *gin.Context) {
	claimID, ok := paramID(c, "id")
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "multipart field \"file\" is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	att, err := h.services.Attachments.Upload(c.Request.Context(), claimID, service.UploadInput{
		Filename:    header.Filename,
		Content:     content,
		Description: c.PostForm("description"),
	}, principalFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusCreated, att)
}

// DownloadAttachment handles GET /api/attachments/:id/download
func (h *Handlers) DownloadAttachment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	stream, err := h.services.Attachments.GetFileStream(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer stream.Content.Close()

	c.DataFromReader(http.StatusOK, stream.Attachment.FileSize, contentType(stream.Attachment), stream.Content, map[string]string{
		"Content-Disposition": contentDisposition(stream.Attachment.OriginalFilename),
		"Content-Length":      strconv.FormatInt(stream.Attachment.FileSize, 10),
	})
}

// DeleteAttachment handles DELETE /api/attachments/:id
func (h *Handlers) DeleteAttachment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.services.Attachments.Delete(c.Request.Context(), id, principalFrom(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"id": id})
}

func contentType(att *entity.Attachment) string {
	if att.FileType == "" {
		return "application/octet-stream"
	}
	return att.FileType
}

func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment; filename=\"" + strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, filename) + "\""
}
