package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithPrefix(t *testing.T) {
	id := WithPrefix("x_")
	assert.Len(t, id, 2+24)
	assert.True(t, HasShape(id, "x_"))
	assert.NotEqual(t, id, WithPrefix("x_"))
}

func TestAttemptAndReport(t *testing.T) {
	assert.True(t, HasShape(Attempt(), AttemptPrefix))
	assert.True(t, HasShape(Report(), ReportPrefix))
	assert.False(t, HasShape(Report(), AttemptPrefix))
}

func TestHasShape_Rejects(t *testing.T) {
	for _, id := range []string{"", "att_", "att_zz", "att_0123456789abcdef0123456g", "rpt_0123456789abcdef01234567"} {
		assert.False(t, HasShape(id, AttemptPrefix), id)
	}
	assert.True(t, HasShape("att_0123456789abcdef01234567", AttemptPrefix))
}
