package handlers_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlehq/huddle-server/internal/domain/file"
	"github.com/huddlehq/huddle-server/internal/domain/user"
	"github.com/huddlehq/huddle-server/internal/domain/voice"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/handlers"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

func multipartBody(t *testing.T, field string, files map[string]string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for name, data := range files {
		part, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(data))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestFileHandler_Upload(t *testing.T) {
	var got file.UploadParams
	var data []byte
	svc := &MockFileService{UploadFunc: func(_ context.Context, params file.UploadParams) (*file.File, error) {
		got = params
		var err error
		data, err = io.ReadAll(params.Body)
		require.NoError(t, err)
		return &file.File{ID: "fil_1", OwnerID: params.OwnerID, Name: params.Name, Size: int64(len(data))}, nil
	}}
	h := handlers.NewFileHandler(svc, 1024, zerolog.Nop())
	router := newRouter(http.MethodPost, "/v1/files", h.Upload)

	body, contentType := multipartBody(t, "file", map[string]string{"notes.txt": "hello world"}, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/files", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, testUser.ID, got.OwnerID)
	assert.Equal(t, "notes.txt", got.Name)
	assert.Equal(t, "hello world", string(data))
}

func TestFileHandler_UploadRejectsOversize(t *testing.T) {
	h := handlers.NewFileHandler(&MockFileService{}, 4, zerolog.Nop())
	router := newRouter(http.MethodPost, "/v1/files", h.Upload)

	body, contentType := multipartBody(t, "file", map[string]string{"big.txt": "too large"}, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/files", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/files", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFileHandler_Download(t *testing.T) {
	svc := &MockFileService{OpenFunc: func(_ context.Context, _, id string) (io.ReadCloser, *file.File, error) {
		return io.NopCloser(strings.NewReader("%PDF-1.4")), &file.File{ID: id, Name: "report.pdf", MimeType: "application/pdf", Size: 8}, nil
	}}
	h := handlers.NewFileHandler(svc, 1024, zerolog.Nop())
	router := newRouter(http.MethodGet, "/v1/files/:id/content", h.Download)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/files/fil_1/content", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=report.pdf`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4", w.Body.String())
}

func TestFileHandler_PresignNotImplemented(t *testing.T) {
	svc := &MockFileService{PresignFunc: func(ctx context.Context, _, _ string) (string, time.Time, error) {
		return "", time.Time{}, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotImplemented, "presigned urls are not supported by the local backend", nil, "test")
	}}
	h := handlers.NewFileHandler(svc, 1024, zerolog.Nop())
	router := newRouter(http.MethodGet, "/v1/files/:id/url", h.Presign)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/files/fil_1/url", nil))
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestVoiceHandler_Clone(t *testing.T) {
	var names []string
	var voiceName string
	svc := &MockVoiceService{CloneVoiceFunc: func(_ context.Context, userID, name string, samples []voice.Sample) (*user.User, error) {
		voiceName = name
		for _, s := range samples {
			names = append(names, s.Name)
		}
		voiceID := "voice_1"
		return &user.User{ID: userID, VoiceID: &voiceID, VoiceStatus: user.VoiceStatusReady}, nil
	}}
	h := handlers.NewVoiceHandler(svc, 1<<20, zerolog.Nop())
	router := newRouter(http.MethodPost, "/v1/voice", h.Clone)

	body, contentType := multipartBody(t, "samples", map[string]string{"a.mp3": "ID3a", "b.mp3": "ID3b"}, map[string]string{"name": "My voice"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/voice", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "My voice", voiceName)
	assert.ElementsMatch(t, []string{"a.mp3", "b.mp3"}, names)
	assert.Contains(t, w.Body.String(), `"voice_status":"ready"`)
}

func TestVoiceHandler_CloneWithoutSamples(t *testing.T) {
	h := handlers.NewVoiceHandler(&MockVoiceService{}, 1<<20, zerolog.Nop())
	router := newRouter(http.MethodPost, "/v1/voice", h.Clone)

	body, contentType := multipartBody(t, "samples", nil, map[string]string{"name": "x"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/voice", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVoiceHandler_Audio(t *testing.T) {
	svc := &MockVoiceService{OpenFunc: func(_ context.Context, _, id string) (io.ReadCloser, *voice.Recording, error) {
		return io.NopCloser(strings.NewReader("mp3-bytes")), &voice.Recording{ID: id, Status: voice.StatusReady}, nil
	}}
	h := handlers.NewVoiceHandler(svc, 1<<20, zerolog.Nop())
	router := newRouter(http.MethodGet, "/v1/tts/:id/audio", h.Audio)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/tts/tts_1/audio", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "mp3-bytes", w.Body.String())
}
