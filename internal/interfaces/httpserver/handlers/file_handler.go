package handlers

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/domain/file"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/responses"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

// multipartOverhead is the slack allowed on top of the file limit for multipart framing.
const multipartOverhead = 1 << 20

// FileHandler serves uploads and downloads.
type FileHandler struct {
	files    file.Service
	maxBytes int64
	log      zerolog.Logger
}

func NewFileHandler(files file.Service, maxBytes int64, log zerolog.Logger) *FileHandler {
	return &FileHandler{files: files, maxBytes: maxBytes, log: log.With().Str("handler", "file").Logger()}
}

// Upload godoc
// @Summary      Upload file
// @Description  Stores the multipart field "file" and returns its metadata.
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Param        file     formData  file                        true   "File contents"
// @Success      201      {object}  file.File
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      413      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/files [post]
func (h *FileHandler) Upload(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		platformerrors.WriteValidationError(c, "multipart field \"file\" is required")
		return
	}
	if header.Size > h.maxBytes {
		platformerrors.WriteValidationError(c, "file is too large")
		return
	}
	body, err := header.Open()
	if err != nil {
		platformerrors.WriteValidationError(c, "failed to read upload")
		return
	}
	defer body.Close()

	f, err := h.files.Upload(c.Request.Context(), file.UploadParams{
		OwnerID: me.ID,
		Name:    header.Filename,
		Body:    body,
	})
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusCreated, f)
}

// Get godoc
// @Summary      Get file metadata
// @Tags         files
// @Produce      json
// @Param        id       path      string                      true   "File ID"
// @Success      200      {object}  file.File
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/files/{id} [get]
func (h *FileHandler) Get(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	f, err := h.files.Get(c.Request.Context(), me.ID, c.Param("id"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, f)
}

// Download godoc
// @Summary      Download file
// @Tags         files
// @Produce      octet-stream
// @Param        id       path      string                      true   "File ID"
// @Param        inline   query     bool                        false  "Serve inline instead of as an attachment"
// @Success      200      {file}    binary
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/files/{id}/content [get]
func (h *FileHandler) Download(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	rc, f, err := h.files.Open(c.Request.Context(), me.ID, c.Param("id"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	defer rc.Close()

	disposition := "attachment"
	if c.Query("inline") == "true" {
		disposition = "inline"
	}
	c.DataFromReader(http.StatusOK, f.Size, f.MimeType, rc, map[string]string{
		"Content-Disposition":    mime.FormatMediaType(disposition, map[string]string{"filename": f.Name}),
		"X-Content-Type-Options": "nosniff",
		"Cache-Control":          "private, max-age=300",
	})
}

// Presign godoc
// @Summary      Presigned download URL
// @Tags         files
// @Produce      json
// @Param        id       path      string                      true   "File ID"
// @Success      200      {object}  responses.PresignResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Failure      501      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/files/{id}/url [get]
func (h *FileHandler) Presign(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	url, expiresAt, err := h.files.Presign(c.Request.Context(), me.ID, c.Param("id"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.PresignResponse{URL: url, ExpiresAt: expiresAt})
}

// Delete godoc
// @Summary      Delete file
// @Tags         files
// @Produce      json
// @Param        id       path      string                      true   "File ID"
// @Success      204
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      403      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/files/{id} [delete]
func (h *FileHandler) Delete(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	if err := h.files.Delete(c.Request.Context(), me.ID, c.Param("id")); err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.Status(http.StatusNoContent)
}
