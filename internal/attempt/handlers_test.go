package attempt

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	m, _, _ := newPipelineManager(t)
	r := gin.New()
	NewHandler(m).RegisterRoutes(r.Group("/v1"))
	return r
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func startAttempt(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/v1/attempts", map[string]string{"user_id": "user_1", "assessment_id": "fizzbuzz"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Attempt Attempt `json:"attempt"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Attempt.ID
}

func TestHandler_StartRequiresUser(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/v1/attempts", map[string]string{"assessment_id": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_failed")
}

func TestHandler_EventsAndCompletion(t *testing.T) {
	r := newTestRouter(t)
	id := startAttempt(t, r)

	w := doJSON(r, http.MethodPost, "/v1/attempts/"+id+"/events", map[string]interface{}{"type": "tab_switch"})
	assert.Equal(t, http.StatusAccepted, w.Code)
	w = doJSON(r, http.MethodPost, "/v1/attempts/"+id+"/events", map[string]interface{}{"type": "multiple_faces", "detected": true})
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = doJSON(r, http.MethodGet, "/v1/attempts/"+id+"/behavior", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var beh struct {
		Behavior Behavior `json:"behavior"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &beh))
	assert.Equal(t, 1, beh.Behavior.TabSwitchCount)
	assert.True(t, beh.Behavior.Presence.MultipleFacesDetected)

	w = doJSON(r, http.MethodPost, "/v1/attempts/"+id+"/complete", map[string]interface{}{
		"code":        "print(1)",
		"final_score": 90,
		"submission":  map[string]int{"tests_passed": 3, "tests_total": 3, "time_taken_seconds": 600},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var done struct {
		Report struct {
			RiskAnalysis struct {
				Score float64 `json:"score"`
			} `json:"risk_analysis"`
			TrustImpact struct {
				NewScore float64 `json:"new_score"`
			} `json:"trust_impact"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &done))
	assert.Equal(t, 35.0, done.Report.RiskAnalysis.Score)
	assert.Equal(t, 96.5, done.Report.TrustImpact.NewScore)

	w = doJSON(r, http.MethodPost, "/v1/attempts/"+id+"/events", map[string]interface{}{"type": "tab_switch"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandler_InvalidEvent(t *testing.T) {
	r := newTestRouter(t)
	id := startAttempt(t, r)

	w := doJSON(r, http.MethodPost, "/v1/attempts/"+id+"/events", map[string]interface{}{"type": "face_status"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_event")
}

func TestHandler_CompleteRejectsBadSubmission(t *testing.T) {
	r := newTestRouter(t)
	id := startAttempt(t, r)

	w := doJSON(r, http.MethodPost, "/v1/attempts/"+id+"/complete", map[string]interface{}{
		"submission": map[string]int{"tests_passed": 5, "tests_total": 2},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "tests_passed")
}

func TestHandler_NotFound(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodGet, "/v1/attempts/att_nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
