// Package validation checks inbound scoring requests.
package validation

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/trustscore/internal/risk"
	"github.com/mbd888/trustscore/internal/skill"
)

// MaxRequestSize is the maximum request body size. Submitted code is the
// largest field.
const MaxRequestSize = 1 << 20 // 1MB

// MaxCodeLength caps submitted and reference source text. Similarity only
// matches the leading similarity.MaxCompareRunes runes of each.
const MaxCodeLength = 200_000

// MaxReferences caps reference solutions compared per attempt.
const MaxReferences = 20

var userIDRegex = regexp.MustCompile(`^[A-Za-z0-9_.:@-]{1,128}$`)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidUserID checks a user identifier.
func IsValidUserID(id string) bool {
	return userIDRegex.MatchString(id)
}

// SanitizeString trims whitespace, strips null bytes and limits length.
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return strings.ReplaceAll(s, "\x00", "")
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Field + ": " + e[0].Message
}

// Validate runs validators and collects their failures.
func Validate(validators ...func() *ValidationError) ValidationErrors {
	var errs ValidationErrors
	for _, v := range validators {
		if err := v(); err != nil {
			errs = append(errs, *err)
		}
	}
	return errs
}

// UserID checks a required user identifier.
func UserID(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return &ValidationError{Field: field, Message: "is required"}
		}
		if !IsValidUserID(value) {
			return &ValidationError{Field: field, Message: "must be 1-128 chars of letters, digits or _.:@-"}
		}
		return nil
	}
}

// MaxLength checks if a field exceeds max length
func MaxLength(field, value string, max int) func() *ValidationError {
	return func() *ValidationError {
		if len(value) > max {
			return &ValidationError{Field: field, Message: "exceeds maximum length"}
		}
		return nil
	}
}

// NonNegative rejects counts and durations below zero.
func NonNegative(field string, value int) func() *ValidationError {
	return func() *ValidationError {
		if value < 0 {
			return &ValidationError{Field: field, Message: "must not be negative"}
		}
		return nil
	}
}

// InRange checks lo <= value <= hi.
func InRange(field string, value, lo, hi float64) func() *ValidationError {
	return func() *ValidationError {
		if value != value || value < lo || value > hi {
			return &ValidationError{Field: field, Message: fmt.Sprintf("must be between %g and %g", lo, hi)}
		}
		return nil
	}
}

// Signals validates a set of behavioral signals.
func Signals(s risk.Signals) ValidationErrors {
	return Validate(
		NonNegative("tab_switch_count", s.TabSwitchCount),
		NonNegative("face_absent_seconds", s.FaceAbsentSeconds),
		InRange("code_similarity_percent", s.CodeSimilarityPercent, 0, 100),
		NonNegative("copy_paste_count", s.CopyPasteCount),
	)
}

// Submission validates submission metrics. Passing more tests than exist is
// rejected.
func Submission(s skill.Submission) ValidationErrors {
	errs := Validate(
		NonNegative("time_taken_seconds", s.TimeTakenSeconds),
		NonNegative("code_length_chars", s.CodeLengthChars),
		NonNegative("tests_passed", s.TestsPassed),
		NonNegative("tests_total", s.TestsTotal),
	)
	if s.TestsPassed > s.TestsTotal {
		errs = append(errs, ValidationError{Field: "tests_passed", Message: "must not exceed tests_total"})
	}
	return errs
}

// Abort ends the request with 400 and the collected errors.
func Abort(c *gin.Context, errs ValidationErrors) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   "validation_failed",
		"message": errs.Error(),
		"details": errs,
	})
}

// UserIDParamMiddleware validates the :id URL parameter on user routes.
func UserIDParamMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.Param("id"); id != "" && !IsValidUserID(id) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_user_id",
				"message": "user id must be 1-128 chars of letters, digits or _.:@-",
			})
			return
		}
		c.Next()
	}
}
