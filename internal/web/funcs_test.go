package web

import (
	"html/template"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/tracker"
)

func TestNl2br(t *testing.T) {
	assert.Equal(t, template.HTML("a &amp; b<br>\n&lt;i&gt;c&lt;/i&gt;"), nl2br("a & b\r\n<i>c</i>"))
	assert.Equal(t, template.HTML(""), nl2br(""))
}

func TestKilobytes(t *testing.T) {
	assert.Equal(t, "1", kilobytes(1024))
	assert.Equal(t, "1.5", kilobytes(1536))
	assert.Equal(t, "2,048", kilobytes(2<<20))
}

func TestStateBadge(t *testing.T) {
	assert.Equal(t, "badge-in_process", stateBadge(models.StateInProcess))
	assert.Equal(t, "badge-unknown", stateBadge("closed"))
}

func TestDay(t *testing.T) {
	assert.Equal(t, "2024-05-01", day(models.NewTimestamp(time.Date(2024, 5, 1, 23, 0, 0, 0, time.Local))))
	assert.Equal(t, "", day(models.Timestamp{}))
}

func TestLineError(t *testing.T) {
	assert.Equal(t, "Line 3: Empty subject", lineError(tracker.LineError{Line: 3, Reason: "empty subject"}))
}
