package platformerrors_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

func TestErrorTypeToHTTPStatus(t *testing.T) {
	tests := []struct {
		errorType platformerrors.ErrorType
		want      int
	}{
		{platformerrors.ErrorTypeNotFound, http.StatusNotFound},
		{platformerrors.ErrorTypeValidation, http.StatusBadRequest},
		{platformerrors.ErrorTypeConflict, http.StatusConflict},
		{platformerrors.ErrorTypeForbidden, http.StatusForbidden},
		{platformerrors.ErrorTypeRateLimited, http.StatusTooManyRequests},
		{platformerrors.ErrorTypeExternal, http.StatusBadGateway},
		{platformerrors.ErrorTypeDatabaseError, http.StatusInternalServerError},
		{platformerrors.ErrorType("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.errorType), func(t *testing.T) {
			assert.Equal(t, tt.want, platformerrors.ErrorTypeToHTTPStatus(tt.errorType))
		})
	}
}

func TestAsErrorKeepsTypeAndCode(t *testing.T) {
	ctx := platformerrors.WithRequestID(context.Background(), "req-1")
	inner := platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "post not found", nil, "code-1")

	wrapped := platformerrors.AsError(ctx, platformerrors.LayerDomain, inner, "load post")

	assert.Equal(t, platformerrors.ErrorTypeNotFound, wrapped.Type)
	assert.Equal(t, "code-1", wrapped.UUID)
	assert.Equal(t, "req-1", wrapped.RequestID)
	assert.True(t, platformerrors.IsErrorType(wrapped, platformerrors.ErrorTypeNotFound))
	assert.True(t, errors.Is(wrapped, inner))
}

func TestAsErrorUntypedBecomesInternal(t *testing.T) {
	wrapped := platformerrors.AsError(context.Background(), platformerrors.LayerDomain, errors.New("boom"), "load post")
	assert.Equal(t, platformerrors.ErrorTypeInternal, wrapped.Type)
	assert.Nil(t, platformerrors.AsError(context.Background(), platformerrors.LayerDomain, nil, "noop"))
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantType    string
		wantMessage string
	}{
		{
			name:        "validation keeps message",
			err:         platformerrors.NewError(context.Background(), platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "content is required", nil, "c1"),
			wantStatus:  http.StatusBadRequest,
			wantType:    "validation_error",
			wantMessage: "content is required",
		},
		{
			name:        "database error is masked",
			err:         platformerrors.NewError(context.Background(), platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "select failed: connection refused", nil, "c2"),
			wantStatus:  http.StatusInternalServerError,
			wantType:    "internal_error",
			wantMessage: "internal server error",
		},
		{
			name:        "external keeps message",
			err:         platformerrors.NewError(context.Background(), platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "translation provider unavailable", nil, "c3"),
			wantStatus:  http.StatusBadGateway,
			wantType:    "external_error",
			wantMessage: "translation provider unavailable",
		},
		{
			name:        "plain error",
			err:         errors.New("raw"),
			wantStatus:  http.StatusInternalServerError,
			wantType:    "internal_error",
			wantMessage: "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			platformerrors.WriteError(c, tt.err, zerolog.Nop())

			require.Equal(t, tt.wantStatus, w.Code)
			var body platformerrors.HTTPErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body.Error.Type)
			assert.Equal(t, tt.wantMessage, body.Error.Message)
		})
	}
}
