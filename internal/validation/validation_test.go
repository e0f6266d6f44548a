package validation

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mbd888/trustscore/internal/risk"
	"github.com/mbd888/trustscore/internal/skill"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIsValidUserID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"user_1", true},
		{"alice@example.com", true},
		{"tenant:42", true},
		{"", false},
		{"has space", false},
		{"semi;colon", false},
		{strings.Repeat("a", 128), true},
		{strings.Repeat("a", 129), false},
	}
	for _, tc := range tests {
		if got := IsValidUserID(tc.id); got != tc.valid {
			t.Errorf("IsValidUserID(%q) = %v, want %v", tc.id, got, tc.valid)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("  hello  ", 100))
	assert.Equal(t, "hel", SanitizeString("hello", 3))
	assert.Equal(t, "ab", SanitizeString("a\x00b", 10))
}

func TestSignals(t *testing.T) {
	assert.Empty(t, Signals(risk.Signals{TabSwitchCount: 3, CodeSimilarityPercent: 100}))

	errs := Signals(risk.Signals{
		TabSwitchCount:        -1,
		FaceAbsentSeconds:     -5,
		CodeSimilarityPercent: 101,
		CopyPasteCount:        -2,
	})
	assert.Len(t, errs, 4)
	assert.Equal(t, "tab_switch_count", errs[0].Field)

	errs = Signals(risk.Signals{CodeSimilarityPercent: math.NaN()})
	assert.Len(t, errs, 1)
}

func TestSubmission(t *testing.T) {
	assert.Empty(t, Submission(skill.Submission{TestsPassed: 10, TestsTotal: 10}))
	assert.Empty(t, Submission(skill.Submission{}))

	errs := Submission(skill.Submission{TestsPassed: 11, TestsTotal: 10})
	assert.Len(t, errs, 1)
	assert.Equal(t, "tests_passed", errs[0].Field)

	errs = Submission(skill.Submission{TimeTakenSeconds: -1})
	assert.Len(t, errs, 1)
}

func TestValidationErrorsError(t *testing.T) {
	assert.Equal(t, "validation failed", ValidationErrors{}.Error())
	errs := ValidationErrors{{Field: "user_id", Message: "is required"}}
	assert.Equal(t, "user_id: is required", errs.Error())
}

func TestUserIDParamMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/users/:id", UserIDParamMiddleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/user_1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/bad%20id", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_user_id")
}

func TestRequestSizeMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/", RequestSizeMiddleware(8), func(c *gin.Context) {
		var body struct{}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"padding":"xxxxxxxxxxxx"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
