package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
)

func TestEnvelope(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apierr.Validation("step", "step must be 1..9"), http.StatusUnprocessableEntity, apierr.CodeValidation},
		{"locked", apierr.ProfileLocked(), http.StatusLocked, apierr.CodeProfileLocked},
		{"wrapped", errors.Join(errors.New("ctx"), apierr.AccessDenied("no")), http.StatusForbidden, apierr.CodeAccessDenied},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, apierr.CodeTimeout},
		{"untyped", errors.New("boom"), http.StatusInternalServerError, apierr.CodeUnexpected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := Envelope(tc.err)
			if status != tc.status || body.ErrorCode != tc.code {
				t.Fatalf("got %d/%s, want %d/%s", status, body.ErrorCode, tc.status, tc.code)
			}
		})
	}
}

func TestRespondErrorBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/onboarding/complete", nil)

	RespondError(c, nil, apierr.OnboardingIncomplete([]string{"diet_planning.plan"}))

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", w.Code)
	}
	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["error_code"] != apierr.CodeOnboardingIncomplete || got["detail"] != "onboarding incomplete" {
		t.Fatalf("unexpected body: %v", got)
	}
	missing, _ := got["missing"].([]any)
	if len(missing) != 1 || missing[0] != "diet_planning.plan" {
		t.Fatalf("unexpected missing: %v", got["missing"])
	}
	if _, ok := got["field"]; ok {
		t.Fatalf("field should be omitted: %v", got)
	}
}
