package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/domain/voice"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/requests"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

// VoiceHandler serves voice cloning and text to speech.
type VoiceHandler struct {
	voice          voice.Service
	sampleMaxBytes int64
	log            zerolog.Logger
}

func NewVoiceHandler(voiceService voice.Service, sampleMaxBytes int64, log zerolog.Logger) *VoiceHandler {
	return &VoiceHandler{voice: voiceService, sampleMaxBytes: sampleMaxBytes, log: log.With().Str("handler", "voice").Logger()}
}

// Clone godoc
// @Summary      Clone voice
// @Description  Takes a "name" field plus one to five "samples" files.
// @Tags         voice
// @Accept       multipart/form-data
// @Produce      json
// @Param        name     formData  string                      true   "Voice name"
// @Param        samples  formData  file                        true   "One to five audio samples"
// @Success      200      {object}  user.User
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      429      {object}  platformerrors.HTTPErrorResponse
// @Failure      503      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/voice [post]
func (h *VoiceHandler) Clone(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.sampleMaxBytes*voice.MaxSamples+multipartOverhead)

	form, err := c.MultipartForm()
	if err != nil {
		platformerrors.WriteValidationError(c, "multipart form with \"samples\" is required")
		return
	}
	headers := form.File["samples"]
	if len(headers) == 0 {
		platformerrors.WriteValidationError(c, "at least one sample is required")
		return
	}

	samples := make([]voice.Sample, 0, len(headers))
	var opened []io.Closer
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			platformerrors.WriteValidationError(c, "failed to read sample "+fh.Filename)
			return
		}
		opened = append(opened, f)
		samples = append(samples, voice.Sample{Name: fh.Filename, Body: f})
	}

	u, err := h.voice.CloneVoice(c.Request.Context(), me.ID, c.PostForm("name"), samples)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, u)
}

// Delete godoc
// @Summary      Delete cloned voice
// @Tags         voice
// @Produce      json
// @Success      200      {object}  user.User
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Failure      503      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/voice [delete]
func (h *VoiceHandler) Delete(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	u, err := h.voice.DeleteVoice(c.Request.Context(), me.ID)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, u)
}

// Synthesize godoc
// @Summary      Synthesize speech
// @Tags         voice
// @Accept       json
// @Produce      json
// @Param        request  body      requests.SpeechRequest      true   "Target to read aloud"
// @Success      200      {object}  voice.Recording
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Failure      429      {object}  platformerrors.HTTPErrorResponse
// @Failure      503      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/tts [post]
func (h *VoiceHandler) Synthesize(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var req requests.SpeechRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.voice.Synthesize(c.Request.Context(), me.ID, req.Target(), req.Language)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Get godoc
// @Summary      Get recording
// @Tags         voice
// @Produce      json
// @Param        id       path      string                      true   "Recording ID"
// @Success      200      {object}  voice.Recording
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/tts/{id} [get]
func (h *VoiceHandler) Get(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	rec, err := h.voice.Get(c.Request.Context(), me.ID, c.Param("id"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Audio godoc
// @Summary      Stream recording audio
// @Tags         voice
// @Produce      octet-stream
// @Param        id       path      string                      true   "Recording ID"
// @Success      200      {file}    binary
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/tts/{id}/audio [get]
func (h *VoiceHandler) Audio(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	rc, rec, err := h.voice.Open(c.Request.Context(), me.ID, c.Param("id"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	defer rc.Close()

	mimeType := rec.MimeType
	if mimeType == "" {
		mimeType = "audio/mpeg"
	}
	c.DataFromReader(http.StatusOK, -1, mimeType, rc, map[string]string{
		"Cache-Control": "private, max-age=3600",
	})
}
