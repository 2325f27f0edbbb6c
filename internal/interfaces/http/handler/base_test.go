package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locoganga/storefront/internal/domain/shared"
	"github.com/locoganga/storefront/internal/interfaces/http/dto"
)

func testContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, recorder
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	return resp
}

func TestBaseHandler_HandleError(t *testing.T) {
	h := &BaseHandler{}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"empty cart", shared.ErrEmptyCart, http.StatusUnprocessableEntity, dto.ErrCodeEmptyCart},
		{"checkout in progress", shared.ErrCheckoutInProgress, http.StatusConflict, dto.ErrCodeCheckoutInProgress},
		{"too late to cancel", shared.ErrTooLateToCancel, http.StatusUnprocessableEntity, dto.ErrCodeTooLateToCancel},
		{"invalid signature", shared.ErrInvalidSignature, http.StatusBadRequest, dto.ErrCodeInvalidSignature},
		{"state conflict", shared.NewDomainError("STATE_CONFLICT", "already advanced"), http.StatusConflict, dto.ErrCodeStateConflict},
		{"unknown error stays opaque", errors.New("driver: bad connection"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, recorder := testContext(t)
			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			resp := decodeResponse(t, recorder)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestBaseHandler_UnknownErrorHidesDetail(t *testing.T) {
	h := &BaseHandler{}
	c, recorder := testContext(t)

	h.HandleError(c, errors.New("password=hunter2 connection refused"))

	resp := decodeResponse(t, recorder)
	require.NotNil(t, resp.Error)
	assert.NotContains(t, resp.Error.Message, "hunter2")
}

func TestGetSessionID(t *testing.T) {
	c, _ := testContext(t)
	c.Request.Header.Set("X-Session-ID", "sess-header")
	assert.Equal(t, "sess-header", getSessionID(c))

	c2, _ := testContext(t)
	c2.Request.Header.Set("Cookie", "session_id=sess-cookie")
	assert.Equal(t, "sess-cookie", getSessionID(c2))

	c3, _ := testContext(t)
	assert.Empty(t, getSessionID(c3))
}
