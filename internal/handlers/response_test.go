package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/funnelform/funnelform-backend/internal/apperrors"
)

func TestRespondServiceErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{fmt.Errorf("%w: quiz gone", apperrors.ErrNotFound), http.StatusNotFound, "not_found"},
		{fmt.Errorf("%w: not yours", apperrors.ErrUnauthorized), http.StatusForbidden, "forbidden"},
		{fmt.Errorf("%w: bad id", apperrors.ErrInvalidArgument), http.StatusBadRequest, "invalid_argument"},
		{apperrors.ErrNoActiveContent, http.StatusConflict, "no_active_content"},
		{fmt.Errorf("%w: paused", apperrors.ErrQuizInactive), http.StatusForbidden, "quiz_inactive"},
		{fmt.Errorf("database exploded"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondServiceError(c, tc.err)

		if w.Code != tc.wantStatus {
			t.Fatalf("%v: expected status %d, got %d", tc.err, tc.wantStatus, w.Code)
		}
		var envelope ErrorEnvelope
		if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("%v: bad body: %v", tc.err, err)
		}
		if envelope.Error.Code != tc.wantCode {
			t.Fatalf("%v: expected code %q, got %q", tc.err, tc.wantCode, envelope.Error.Code)
		}
	}
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/healthcheck", HealthCheck)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("unexpected response: %d %q", w.Code, w.Body.String())
	}
}
