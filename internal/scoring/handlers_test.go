package scoring

import (
	"bytes"
	"context"
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

func postScore(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/score", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Score(t *testing.T) {
	p := newPipeline(t, nil)
	r := gin.New()
	NewHandler(p).RegisterRoutes(r.Group("/v1"))

	w := postScore(t, r, `{
		"user_id": "user_1",
		"attempt_id": "ext-42",
		"final_score": 88,
		"signals": {"tab_switch_count": 2, "copy_paste_count": 1},
		"submission": {"time_taken_seconds": 1200, "code_length_chars": 400, "tests_passed": 9, "tests_total": 10}
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Report map[string]json.RawMessage `json:"report"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	for _, key := range []string{"metadata", "summary", "skill_analysis", "risk_analysis", "trust_impact"} {
		assert.Contains(t, resp.Report, key)
	}

	var risk struct {
		Score   float64 `json:"score"`
		Summary string  `json:"explanation_summary"`
	}
	require.NoError(t, json.Unmarshal(resp.Report["risk_analysis"], &risk))
	assert.Equal(t, 25.0, risk.Score)
	assert.Equal(t, "Risk factors detected: Tab switching occurred 2 times (+20 risk). Copy-paste used 1 times (+5 risk).", risk.Summary)
}

func TestHandler_ScoreValidation(t *testing.T) {
	p := newPipeline(t, nil)
	r := gin.New()
	NewHandler(p).RegisterRoutes(r.Group("/v1"))

	w := postScore(t, r, `{"user_id": "u", "signals": {"code_similarity_percent": 140, "tab_switch_count": -1}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error   string `json:"error"`
		Details []struct {
			Field string `json:"field"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation_failed", resp.Error)
	assert.Len(t, resp.Details, 2)

	w = postScore(t, r, `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ScoreReplayedAttempt(t *testing.T) {
	p := newPipeline(t, nil)
	r := gin.New()
	NewHandler(p).RegisterRoutes(r.Group("/v1"))

	body := `{"user_id": "user_1", "attempt_id": "ext-42", "signals": {"tab_switch_count": 10}}`
	require.Equal(t, http.StatusOK, postScore(t, r, body).Code)
	for i := 0; i < 2; i++ {
		w := postScore(t, r, body)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "attempt_already_scored")
	}

	score, err := p.Ledger().Current(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, 90.0, score)

	reports, err := p.Reports().ListByUser(context.Background(), "user_1", 10)
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}
